package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Shay12tg/native-keyshare/internal/channel"
)

func newTestStore(bus *channel.Bus, name string, initTS int64) *Store {
	return New(name, uuid.New(), initTS, bus, nil)
}

func TestSetGetRoundTrip(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t1", 1)
	defer s.Close()

	if !s.Set("k", map[string]any{"n": float64(1)}) {
		t.Fatal("Set failed")
	}
	v, ok := s.Get("k", false)
	if !ok {
		t.Fatal("Get returned absent")
	}
	if m, ok := v.(map[string]any); !ok || m["n"] != float64(1) {
		t.Fatalf("got %#v", v)
	}
}

func TestSetOverwriteReturnsLatestValue(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t2", 1)
	defer s.Close()

	s.Set("k", "v1")
	s.Set("k", "v2")
	v, ok := s.Get("k", false)
	if !ok || v != "v2" {
		t.Fatalf("got %#v, want v2", v)
	}
}

func TestInvalidKeyRejected(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t3", 1)
	defer s.Close()

	if s.Set("", "v") {
		t.Error("empty key should be rejected")
	}
	long := make([]byte, MaxKeyLength+1)
	if s.Set(string(long), "v") {
		t.Error("over-length key should be rejected")
	}
}

func TestSetAbsentValueRejected(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t4", 1)
	defer s.Close()

	if s.Set("k", nil) {
		t.Error("nil value should be rejected")
	}
}

func TestGetNeverWrittenReturnsAbsent(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t5", 1)
	defer s.Close()

	if _, ok := s.Get("missing", false); ok {
		t.Error("expected absent for a key never written")
	}
}

func TestDeleteNeverWrittenReturnsFalse(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t6", 1)
	defer s.Close()

	if s.Delete("missing") {
		t.Error("expected false deleting a key never written")
	}
}

func TestDeleteThenGetReturnsAbsent(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t7", 1)
	defer s.Close()

	s.Set("k", "v")
	if !s.Delete("k") {
		t.Fatal("Delete should succeed")
	}
	if _, ok := s.Get("k", false); ok {
		t.Error("expected absent after delete")
	}
}

func TestInPlaceReuseKeepsSameMetaRegion(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t8", 1)
	defer s.Close()

	s.Set("k", 0, WithMinBufferSize(64))
	s.mu.RLock()
	firstMeta := s.bindings["k"].meta
	s.mu.RUnlock()

	for i := 1; i < 100; i++ {
		s.Set("k", i)
	}

	s.mu.RLock()
	lastMeta := s.bindings["k"].meta
	s.mu.RUnlock()

	if firstMeta != lastMeta {
		t.Error("in-place updates should never replace the MetaHeader")
	}
}

func TestImmutableAlwaysReallocates(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t9", 1)
	defer s.Close()

	s.Set("k", "a", WithMinBufferSize(64))
	s.mu.RLock()
	firstMeta := s.bindings["k"].meta
	s.mu.RUnlock()

	s.Set("k", "b", WithImmutable())
	s.mu.RLock()
	secondMeta := s.bindings["k"].meta
	s.mu.RUnlock()

	if firstMeta == secondMeta {
		t.Error("immutable Set should always allocate a fresh MetaHeader")
	}
}

func TestOverflowReallocatesAndKeepsLatestValue(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t10", 1)
	defer s.Close()

	small := "a"
	big := make([]byte, 200)
	for i := range big {
		big[i] = 'a'
	}

	s.Set("k", small, WithMinBufferSize(8))
	s.Set("k", string(big))

	v, ok := s.Get("k", false)
	if !ok {
		t.Fatal("expected a value")
	}
	if v != string(big) {
		t.Fatalf("got value of length %d, want %d", len(v.(string)), len(big))
	}
}

func TestPatternDeleteRemovesOnlyMatches(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t11", 1)
	defer s.Close()

	for _, k := range []string{"u:1", "u:2", "u:3", "v:1"} {
		s.Set(k, k)
	}

	if !s.Delete("u:*") {
		t.Fatal("pattern delete should report true")
	}
	keys := s.ListKeys("")
	if len(keys) != 1 || keys[0] != "v:1" {
		t.Fatalf("got %v, want [v:1]", keys)
	}
}

func TestListKeysWithPattern(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t12", 1)
	defer s.Close()

	s.Set("a:1", 1)
	s.Set("a:2", 2)
	s.Set("b:1", 3)

	keys := s.ListKeys("a:*")
	if len(keys) != 2 {
		t.Fatalf("got %v, want 2 matches", keys)
	}
}

func TestLockExcludesConcurrentWriter(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t13", 1)
	defer s.Close()

	s.Set("k", "v")
	if !s.Lock("k", time.Second) {
		t.Fatal("Lock should succeed")
	}

	done := make(chan bool, 1)
	go func() {
		done <- s.Set("k", "v2") // no skip_lock: should time out against the held lock
	}()

	select {
	case ok := <-done:
		if ok {
			t.Error("Set should not succeed while the key is locked elsewhere")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Set never returned")
	}

	s.Release("k")
}

func TestTwoStoresEcho(t *testing.T) {
	bus := channel.NewBus()
	a := newTestStore(bus, "echo", 1)
	defer a.Close()

	a.Set("x", map[string]any{"n": float64(1)})

	b := newTestStore(bus, "echo", 2)
	defer b.Close()

	time.Sleep(150 * time.Millisecond)
	v, ok := b.Get("x", false)
	if !ok {
		t.Fatal("b never converged on a's state")
	}
	if m := v.(map[string]any); m["n"] != float64(1) {
		t.Fatalf("got %#v", v)
	}

	b.Set("x", map[string]any{"n": float64(2)})
	time.Sleep(50 * time.Millisecond)

	v, ok = a.Get("x", false)
	if !ok {
		t.Fatal("a never saw b's update")
	}
	if m := v.(map[string]any); m["n"] != float64(2) {
		t.Fatalf("got %#v", v)
	}
}

func TestConcurrentReadersAndWriterNeverDisagreeOnLength(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t14", 1)
	defer s.Close()

	s.Set("k", 0)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-stop:
				return
			default:
				s.Set("k", i)
				i++
			}
		}
	}()

	errs := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					v, ok := s.Get("k", false)
					if ok {
						if _, isInt := v.(int64); !isInt {
							errs <- fmt.Sprintf("unexpected type %T", v)
						}
					}
				}
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
}

func TestCloseStopsListener(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t15", 1)
	s.Close()

	if bus.SubscriberCount("t15") != 0 {
		t.Error("Close should unsubscribe from the bus")
	}
	// Operations after Close report the neutral failure value.
	if s.Set("k", "v") {
		t.Error("Set after Close should fail")
	}
}

func TestStatsReflectsBindingsAndTTLCount(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t16", 1)
	defer s.Close()

	s.Set("k1", "v", WithTTL(60))
	s.Set("k2", "v")

	stats := s.Stats()
	if stats.Keys != 2 {
		t.Errorf("Keys = %d, want 2", stats.Keys)
	}
	if stats.TTLKeys != 1 {
		t.Errorf("TTLKeys = %d, want 1", stats.TTLKeys)
	}
	if stats.ArenaBytes <= 0 {
		t.Error("ArenaBytes should be positive after allocations")
	}
}

func TestSetWithoutTTLClearsExistingExpiry(t *testing.T) {
	bus := channel.NewBus()
	s := newTestStore(bus, "t17", 1)
	defer s.Close()

	s.Set("k", "v1", WithTTL(60))
	if stats := s.Stats(); stats.TTLKeys != 1 {
		t.Fatalf("TTLKeys = %d, want 1 after WithTTL", stats.TTLKeys)
	}

	s.Set("k", "v2")
	if stats := s.Stats(); stats.TTLKeys != 0 {
		t.Fatalf("TTLKeys = %d, want 0 after a plain Set", stats.TTLKeys)
	}
	v, ok := s.Get("k", false)
	if !ok || v != "v2" {
		t.Fatalf("got %#v, want v2", v)
	}
}

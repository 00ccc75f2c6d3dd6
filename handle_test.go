package keyshare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shay12tg/native-keyshare/internal/store"
)

func TestOpenSetGetRoundTrip(t *testing.T) {
	h, err := Open(t.Name())
	require.NoError(t, err)
	defer h.Close()

	require.True(t, h.Set("k", "v"))
	v, ok := h.Get("k", false)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestOpenReturnsIndependentHandlesThatConverge(t *testing.T) {
	name := t.Name()

	a, err := Open(name)
	require.NoError(t, err)
	defer a.Close()

	a.Set("x", "hello")

	b, err := Open(name)
	require.NoError(t, err)
	defer b.Close()

	require.NotSame(t, a, b)
	require.Eventually(t, func() bool {
		v, ok := b.Get("x", false)
		return ok && v == "hello"
	}, time.Second, 10*time.Millisecond)
}

func TestCloseDeregistersHandle(t *testing.T) {
	name := t.Name()
	h, err := Open(name)
	require.NoError(t, err)

	require.Equal(t, 1, LiveHandles(name))
	h.Close()
	require.Equal(t, 0, LiveHandles(name))
}

func TestDeletePatternEndToEnd(t *testing.T) {
	h, err := Open(t.Name())
	require.NoError(t, err)
	defer h.Close()

	for _, k := range []string{"u:1", "u:2", "u:3", "v:1"} {
		h.Set(k, k)
	}
	require.True(t, h.Delete("u:*"))
	require.ElementsMatch(t, []string{"v:1"}, h.ListKeys(""))
}

func TestTTLExpiryEndToEnd(t *testing.T) {
	h, err := Open(t.Name())
	require.NoError(t, err)
	defer h.Close()

	require.True(t, h.Set("k", "v", store.WithTTL(1)))
	_, ok := h.Get("k", false)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok := h.Get("k", false)
		return !ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestStatsReportsKeyCount(t *testing.T) {
	h, err := Open(t.Name())
	require.NoError(t, err)
	defer h.Close()

	h.Set("a", 1)
	h.Set("b", 2)

	stats := h.Stats()
	require.Equal(t, 2, stats.Keys)
}

// Command keyshare-bench drives concurrent Set/Get traffic against one
// store name from several goroutines, exercising reader/writer contention
// end-to-end, in the spirit of the teacher's cmd/debug-capacity probe but
// against this module's own Store instead of a gRPC shared-memory ring.
package main

import (
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Shay12tg/native-keyshare"
)

func main() {
	readers := flag.Int("readers", 8, "number of concurrent reader goroutines")
	duration := flag.Duration("duration", time.Second, "how long to run the benchmark")
	storeName := flag.String("store", "keyshare-bench", "store name to open")
	flag.Parse()

	h, err := keyshare.Open(*storeName)
	if err != nil {
		panic(err)
	}
	defer h.Close()

	h.Set("k", 0)

	stop := make(chan struct{})
	var writes int64
	var reads int64
	var readErrors int64

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
				h.Set("k", i)
				i++
				atomic.AddInt64(&writes, 1)
			}
		}
	}()

	for r := 0; r < *readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, ok := h.Get("k", false)
					atomic.AddInt64(&reads, 1)
					if !ok {
						atomic.AddInt64(&readErrors, 1)
					}
				}
			}
		}()
	}

	time.Sleep(*duration)
	close(stop)
	wg.Wait()

	fmt.Printf("store=%q readers=%d duration=%s\n", *storeName, *readers, *duration)
	fmt.Printf("writes=%d reads=%d lock-timeouts=%d\n", writes, reads, readErrors)
	fmt.Printf("stats=%+v\n", h.Stats())
}

package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophdiary/internal/live"
)

// Observe posts every snapshot received on sub to loop, where fn runs it.
// The returned cancel closes sub. When cancel runs on the loop, fn is not
// called again, even for snapshots that were already posted.
func Observe[T any](loop *Loop, sub *live.Subscription[T], fn func(T)) (cancel func()) {
	var stopped atomic.Bool
	stop := make(chan struct{})

	go func() {
		for {
			select {
			case v, ok := <-sub.C():
				if !ok {
					return
				}
				loop.Post(func() {
					if !stopped.Load() {
						fn(v)
					}
				})
			case <-stop:
				return
			case <-loop.Done():
				sub.Close()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			close(stop)
			sub.Close()
		})
	}
}

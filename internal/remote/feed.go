package remote

import "sync"

// Feed hands values from producers that must never block (listener
// callbacks, broadcasts under a lock) to a single consumer channel.
//
// An ordered feed queues every value. A latest-only feed keeps just the most
// recent pending value, which suits full-collection snapshots.
type Feed[T any] struct {
	mu         sync.Mutex
	pending    []T
	latestOnly bool

	wake chan struct{}
	done chan struct{}
	out  chan T
	once sync.Once
}

func NewFeed[T any](latestOnly bool) *Feed[T] {
	f := &Feed[T]{
		latestOnly: latestOnly,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		out:        make(chan T),
	}
	go f.run()
	return f
}

// Out is closed after Close.
func (f *Feed[T]) Out() <-chan T { return f.out }

// Put never blocks. Values put after Close are dropped.
func (f *Feed[T]) Put(v T) {
	f.mu.Lock()
	if f.latestOnly {
		f.pending = append(f.pending[:0], v)
	} else {
		f.pending = append(f.pending, v)
	}
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed[T]) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *Feed[T]) run() {
	defer close(f.out)
	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.mu.Unlock()
			select {
			case <-f.wake:
				continue
			case <-f.done:
				return
			}
		}
		v := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()

		select {
		case f.out <- v:
		case <-f.done:
			return
		}
	}
}

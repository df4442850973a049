package backend

import "context"

// pool bounds the number of in-process encodes running at once so a burst
// of large images cannot starve the request-serving goroutines.
type pool struct {
	slots chan struct{}
}

func newPool(size int) *pool {
	if size <= 0 {
		size = 1
	}
	return &pool{slots: make(chan struct{}, size)}
}

// acquire blocks until a slot is free or the context ends.
func (p *pool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pool) release() {
	<-p.slots
}

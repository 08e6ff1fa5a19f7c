package main

import "sync"

// Helper is a goroutine applying fn to each item queued to it, in queue
// order, until it is closed. ctx is handed to every call of fn and belongs
// to the helper until Wait returns.
type Helper[Work any, Ctx any] struct {
	work chan Work
	wg   sync.WaitGroup
	once sync.Once
}

// NewHelper starts a helper with room for workCap items to be queued ahead
// of the one being worked on.
func NewHelper[Work any, Ctx any](workCap int, fn func(Work, Ctx), ctx Ctx) *Helper[Work, Ctx] {
	h := &Helper[Work, Ctx]{work: make(chan Work, workCap)}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for item := range h.work {
			fn(item, ctx)
		}
	}()
	return h
}

// Queue sends an item of work to the helper. Queueing after Close panics.
func (h *Helper[Work, Ctx]) Queue(item Work) {
	h.work <- item
}

// Close tells the helper no more work is coming. It may be called more than
// once.
func (h *Helper[Work, Ctx]) Close() {
	h.once.Do(func() { close(h.work) })
}

// Wait blocks until everything queued before Close has been worked on.
func (h *Helper[Work, Ctx]) Wait() {
	h.wg.Wait()
}

// CloseWait calls Close and then Wait.
func (h *Helper[Work, Ctx]) CloseWait() {
	h.Close()
	h.Wait()
}

package process

import "context"

// funcHandle — Handle для in-process задачи.
type funcHandle struct {
	done chan struct{}
	err  error
}

// Wait ждёт завершения функции.
func (h *funcHandle) Wait() error {
	<-h.done
	return h.err
}

// Go запускает fn в отдельной горутине и сразу возвращает Handle.
func Go(ctx context.Context, fn func(ctx context.Context) error) Handle {
	h := &funcHandle{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.err = fn(ctx)
	}()
	return h
}

// Done возвращает уже завершённый Handle с результатом err.
func Done(err error) Handle {
	h := &funcHandle{done: make(chan struct{}), err: err}
	close(h.done)
	return h
}

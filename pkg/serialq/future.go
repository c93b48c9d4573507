package serialq

import (
	"context"
)

// Future результат операции, которая ещё может выполняться.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait ждёт результата. Отмена ctx прекращает только ожидание, сама
// операция продолжит выполняться.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then вызывает колбэк на переданном executor'е, когда результат готов.
func (f *Future[T]) Then(executor Executor, onSuccess func(T), onFailure func(error)) {
	go func() {
		<-f.done

		executor.Execute(func() {
			if f.err != nil {
				if onFailure != nil {
					onFailure(f.err)
				}

				return
			}

			if onSuccess != nil {
				onSuccess(f.value)
			}
		})
	}()
}

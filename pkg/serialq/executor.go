package serialq

// Executor контекст, в котором выполняются колбэки результата. Это
// никогда не горутина-обработчик очереди.
type Executor interface {
	Execute(fn func())
}

type ExecutorFunc func(fn func())

func (f ExecutorFunc) Execute(fn func()) {
	f(fn)
}

// GoExecutor выполняет каждый колбэк в отдельной горутине.
var GoExecutor = ExecutorFunc(func(fn func()) { go fn() }) //nolint:gochecknoglobals

// LoopExecutor выполняет колбэки последовательно в одной горутине, как
// главный цикл хоста.
type LoopExecutor struct {
	calls chan func()
	done  chan struct{}
}

func NewLoopExecutor(capacity int) *LoopExecutor {
	e := &LoopExecutor{
		calls: make(chan func(), capacity),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(e.done)

		for fn := range e.calls {
			fn()
		}
	}()

	return e
}

func (e *LoopExecutor) Execute(fn func()) {
	e.calls <- fn
}

// Close дожидается выполнения уже переданных колбэков.
func (e *LoopExecutor) Close() {
	close(e.calls)
	<-e.done
}

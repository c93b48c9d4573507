package contextx

import (
	"context"
	"fmt"
)

// TraceID сквозной идентификатор запроса. Приходит в X-Trace-Id или
// создаётся на входе и уходит дальше во внешние сервисы.
type TraceID string

// ActorID идентификатор игрока, от имени которого выполняется запрос.
type ActorID string

type (
	contextKeyTraceID struct{}
	contextKeyActorID struct{}
)

func (t TraceID) String() string {
	return string(t)
}

func (a ActorID) String() string {
	return string(a)
}

func WithTraceID(ctx context.Context, traceID TraceID) context.Context {
	return context.WithValue(ctx, contextKeyTraceID{}, traceID)
}

func TraceIDFromContext(ctx context.Context) (TraceID, error) {
	return valueFromContext[TraceID](ctx, contextKeyTraceID{}, "trace id")
}

func WithActorID(ctx context.Context, actorID ActorID) context.Context {
	return context.WithValue(ctx, contextKeyActorID{}, actorID)
}

func ActorIDFromContext(ctx context.Context) (ActorID, error) {
	return valueFromContext[ActorID](ctx, contextKeyActorID{}, "actor id")
}

func valueFromContext[T any](ctx context.Context, key any, name string) (T, error) {
	v, ok := ctx.Value(key).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w", name, ErrNoValue)
	}

	return v, nil
}

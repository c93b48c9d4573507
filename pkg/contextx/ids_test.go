package contextx_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goods_market/pkg/contextx"
)

func TestActorID(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	var testActorIDEmpty contextx.ActorID

	testActorID := contextx.ActorID("2b0f4c1e-actor")

	actorID, err := contextx.ActorIDFromContext(ctx)
	rq.Equal(testActorIDEmpty, actorID)
	rq.ErrorIs(err, contextx.ErrNoValue)
	rq.ErrorContains(err, "actor id: no value in context")

	ctx = contextx.WithActorID(ctx, testActorID)

	actorID, err = contextx.ActorIDFromContext(ctx)
	rq.Equal(testActorID, actorID)
	rq.NoError(err)
	rq.Equal("2b0f4c1e-actor", actorID.String())
}

func TestTraceID(t *testing.T) {
	rq := require.New(t)
	ctx := context.Background()

	var testTraceIDEmpty contextx.TraceID

	testTraceIDNotEmpty := contextx.TraceID("test-trace-id")

	traceID, err := contextx.TraceIDFromContext(ctx)
	rq.Equal(testTraceIDEmpty, traceID)
	rq.ErrorIs(err, contextx.ErrNoValue)
	rq.ErrorContains(err, "trace id: no value in context")

	ctx = contextx.WithTraceID(ctx, testTraceIDNotEmpty)

	traceID, err = contextx.TraceIDFromContext(ctx)
	rq.Equal(testTraceIDNotEmpty, traceID)
	rq.NoError(err)
}

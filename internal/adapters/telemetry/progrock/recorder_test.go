package progrock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/gale/internal/adapters/telemetry/progrock"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

func TestRecorder_VertexLifecycle(t *testing.T) {
	recorder := progrock.New()

	ctx, vertex := recorder.Record(context.Background(), "fetch liba@1.0.0")
	require.NotNil(t, vertex)

	attached, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, vertex, attached)

	_, err := vertex.Stdout().Write([]byte("updating mirror\n"))
	require.NoError(t, err)
	vertex.Log(domain.LogLevelDebug, "resolved to aaa111")
	vertex.Complete(nil)

	require.NoError(t, recorder.Close())
}

func TestRecorder_CachedVertex(t *testing.T) {
	recorder := progrock.New()

	_, vertex := recorder.Record(context.Background(), "fetch libb@2.0.0")
	vertex.Cached()
	vertex.Complete(nil)

	require.NoError(t, recorder.Close())
}

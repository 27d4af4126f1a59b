package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Settings{ServiceName: "vigil", Version: "test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	// The global providers still hand out usable instruments.
	_, err = Meter("vigil/test").Int64Counter("vigil.test.count")
	assert.NoError(t, err)
	_, span := Tracer("vigil/test").Start(context.Background(), "op")
	span.End()
}

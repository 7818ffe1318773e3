package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPort(t *testing.T) {
	assert.Equal(t, "tempo:4318", hostPort("http://tempo:4318"))
	assert.Equal(t, "tempo:4318", hostPort("https://tempo"))
	assert.Equal(t, "collector:55681", hostPort(" collector:55681 "))
}

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "inngo", "")
	require.NoError(t, err)
	assert.Nil(t, shutdown)

	_, span := Start(context.Background(), "noop")
	End(span, nil)
}

package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier("s3cret")
	ctx := context.Background()
	sig := v.Sign("order_1", "pay_1")

	ok, err := v.Verify(ctx, "order_1", "pay_1", sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(ctx, "order_1", "pay_2", sig)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(ctx, "order_1", "pay_1", "not-hex")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewHMACVerifier("other").Verify(ctx, "order_1", "pay_1", sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHMACVerifier_NoSecret(t *testing.T) {
	_, err := NewHMACVerifier("").Verify(context.Background(), "o", "p", "00")
	assert.ErrorIs(t, err, ErrNoSecret)
}

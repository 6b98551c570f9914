package middleware

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestIDFromContext(ctx))
}

func TestRequestIDMissing(t *testing.T) {
	assert.Equal(t, "", GetRequestIDFromContext(context.Background()))
}

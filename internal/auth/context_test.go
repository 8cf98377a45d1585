// ABOUTME: Tests for AuthContext propagation through context.Context
// ABOUTME: Covers WithAuth/FromContext round trips and the Actor fallback

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_Empty(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Equal(t, "anonymous", Actor(context.Background()))
}

func TestWithAuth_RoundTrip(t *testing.T) {
	ctx := WithAuth(context.Background(), &AuthContext{Username: "admin", Method: MethodToken})

	got := FromContext(ctx)
	if assert.NotNil(t, got) {
		assert.Equal(t, "admin", got.Username)
		assert.Equal(t, MethodToken, got.Method)
	}
	assert.Equal(t, "admin", Actor(ctx))
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), authContextKey{}, "not an AuthContext")
	assert.Nil(t, FromContext(ctx))
}

package fulfillment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printforge/teepress/config"
)

func TestAPIErrorRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       *APIError
		retryable bool
	}{
		{"network failure", &APIError{Err: errors.New("connection refused")}, true},
		{"throttled", &APIError{StatusCode: 429}, true},
		{"server error", &APIError{StatusCode: 503}, true},
		{"bad gateway", &APIError{StatusCode: 502}, true},
		{"validation rejection", &APIError{StatusCode: 422, Body: "bad image"}, false},
		{"unauthorized", &APIError{StatusCode: 401}, false},
		{"not found", &APIError{StatusCode: 404}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryableWrappedAndForeignErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", &APIError{StatusCode: 500})
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(errors.New("some local problem")))
	assert.False(t, IsRetryable(nil))
}

func TestNewSelectsVendor(t *testing.T) {
	c, err := New(config.Fulfillment{Vendor: "teemill"})
	require.NoError(t, err)
	assert.IsType(t, &TeemillClient{}, c)

	c, err = New(config.Fulfillment{Vendor: "printify", ShopID: "1"})
	require.NoError(t, err)
	assert.IsType(t, &PrintifyClient{}, c)

	_, err = New(config.Fulfillment{Vendor: "zazzle"})
	assert.Error(t, err)
}

func TestReferenceRoundTrip(t *testing.T) {
	ref := NewReference("u1")
	userID, ok := UserFromReference(ref)
	require.True(t, ok)
	assert.Equal(t, "u1", userID)
	assert.Contains(t, ref, ReferencePrefix("u1"))
}

func TestReferencesDifferPerCall(t *testing.T) {
	assert.NotEqual(t, NewReference("u1"), NewReference("u1"),
		"nonce must defeat duplicate-order collisions")
}

func TestUserFromReferenceHandlesUnderscoredIDs(t *testing.T) {
	ref := NewReference("guild_42_user_7")
	userID, ok := UserFromReference(ref)
	require.True(t, ok)
	assert.Equal(t, "guild_42_user_7", userID)
}

func TestUserFromReferenceRejectsForeignReferences(t *testing.T) {
	for _, ref := range []string{"", "order-123", "tee_", "tee_u1", "shop_u1_abc"} {
		_, ok := UserFromReference(ref)
		assert.False(t, ok, "reference %q", ref)
	}
}

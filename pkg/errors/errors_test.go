package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidation("keyword too long")
	assert.Equal(t, "VALIDATION: keyword too long", err.Error())

	wrapped := NewStoreUnavailable("fetch fragments", fmt.Errorf("dial tcp: refused"))
	assert.Equal(t, "STORE_UNAVAILABLE: fetch fragments: dial tcp: refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := NewStoreUnavailable("insert fragment", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"validation", NewValidation("bad input"), IsValidation},
		{"not found", NewNotFound("no fragment"), IsNotFound},
		{"store unavailable", NewStoreUnavailable("down", nil), IsStoreUnavailable},
		{"configuration", NewConfiguration("missing key"), IsConfiguration},
		{"provider", NewProvider("upstream failed", 502), IsProvider},
		{"empty response", NewEmptyResponse("no text"), IsEmptyResponse},
		{"generation", NewGeneration("compose failed", nil), IsGeneration},
		{"internal", NewInternal("boom", nil), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.predicate(tt.err))
			assert.False(t, tt.predicate(fmt.Errorf("plain error")))
		})
	}
}

func TestNewProvider_CarriesStatus(t *testing.T) {
	err := NewProvider("rate limited", 429)

	require.True(t, IsProvider(err))
	assert.Equal(t, 429, StatusOf(err))
	assert.Equal(t, "rate limited", MessageOf(err))
}

func TestWrap_PreservesTypeAndStatus(t *testing.T) {
	err := NewProvider("upstream said no", 503)
	wrapped := Wrap(err, "generate story")

	assert.True(t, IsProvider(wrapped))
	assert.Equal(t, 503, StatusOf(wrapped))
	assert.Equal(t, "generate story: upstream said no", MessageOf(wrapped))
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("oops"), "doing work")

	assert.True(t, IsInternal(wrapped))
	assert.Equal(t, 0, StatusOf(wrapped))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
}

package errors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	err := StoreFailure(context.DeadlineExceeded, "load")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, IsCode(err, ErrCodeStoreFailure))
	assert.Equal(t, "[STORE_FAILURE] enrollment store load failed: context deadline exceeded", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "nothing %d", 1))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeSessionMissing, GetCode(SessionMissing()))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))

	wrapped := InternalWrap(FlagFailure(errors.New("boom"), "set"), "outer")
	assert.Equal(t, ErrCodeInternal, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeInternal))
}

func TestConfigurationDetails(t *testing.T) {
	err := Configuration("store", "is required")

	assert.Equal(t, ErrCodeConfiguration, err.Code)
	assert.Equal(t, "store", GetDetails(err)["field"])
	assert.Nil(t, GetDetails(errors.New("plain")))
}

func TestMapErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeStoreFailure, http.StatusServiceUnavailable},
		{ErrCodeFlagFailure, http.StatusServiceUnavailable},
		{ErrCodeConfiguration, http.StatusInternalServerError},
		{ErrCodeSessionMissing, http.StatusInternalServerError},
		{ErrCodeInvalidSecret, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MapErrorCodeToHTTPStatus(tt.code))
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatusCode())
		})
	}
}

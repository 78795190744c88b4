package platformerrors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorCarriesRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	err := NewError(ctx, LayerDomain, ErrorTypeValidation, "Message is required", nil)

	assert.Equal(t, "req-1", err.GetRequestID())
	assert.NotEmpty(t, err.GetUUID())
	assert.Equal(t, ErrorTypeValidation, err.GetErrorType())
	assert.Equal(t, "[domain][VALIDATION] Message is required", err.Error())
}

func TestAsErrorKeepsType(t *testing.T) {
	ctx := context.Background()
	inner := NewError(ctx, LayerInfrastructure, ErrorTypeExternal, "ai service unavailable", errors.New("connection refused"))

	outer := AsError(ctx, LayerDomain, inner, "Error sending message")

	require.NotNil(t, outer)
	assert.Equal(t, ErrorTypeExternal, outer.Type)
	assert.Equal(t, inner.UUID, outer.UUID)
	assert.Equal(t, "connection refused", outer.Detail())
	assert.True(t, IsErrorType(outer, ErrorTypeExternal))
	assert.ErrorIs(t, outer, inner)
}

func TestAsErrorPlainError(t *testing.T) {
	outer := AsError(context.Background(), LayerRepository, errors.New("boom"), "save conversation")

	assert.Equal(t, ErrorTypeInternal, outer.Type)
	assert.Equal(t, "boom", outer.Detail())
	assert.Nil(t, AsError(context.Background(), LayerRepository, nil, "noop"))
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	cases := map[ErrorType]int{
		ErrorTypeValidation:      http.StatusBadRequest,
		ErrorTypeUnauthorized:    http.StatusUnauthorized,
		ErrorTypeNotFound:        http.StatusNotFound,
		ErrorTypePayloadTooLarge: http.StatusRequestEntityTooLarge,
		ErrorTypeExternal:        http.StatusBadGateway,
		ErrorTypeDatabaseError:   http.StatusInternalServerError,
		ErrorType("UNKNOWN"):     http.StatusInternalServerError,
	}
	for errorType, want := range cases {
		assert.Equal(t, want, ErrorTypeToHTTPStatus(errorType), string(errorType))
	}
}

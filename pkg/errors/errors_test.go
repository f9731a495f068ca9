package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		ErrUnauthorized:     http.StatusUnauthorized,
		ErrUserNotFound:     http.StatusNotFound,
		ErrDocumentNotFound: http.StatusNotFound,
		ErrQuotaExceeded:    http.StatusForbidden,
		ErrInvalidParam:     http.StatusBadRequest,
		ErrProviderError:    http.StatusBadGateway,
		ErrMalformedOutput:  http.StatusBadGateway,
		ErrInternalError:    http.StatusInternalServerError,
	}
	for e, status := range cases {
		assert.Equal(t, status, e.HTTPStatus, string(e.Code))
	}
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	e := ErrProviderError.WithDetail("upstream said 500")
	assert.Equal(t, "upstream said 500", e.Detail)
	assert.Empty(t, ErrProviderError.Detail)
	assert.True(t, stderrors.Is(e, ErrProviderError))
	assert.False(t, stderrors.Is(e, ErrQuotaExceeded))
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrQuotaExceeded.WithDetail("x"))
	appErr := AsAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeQuotaExceeded, appErr.Code)

	plain := AsAppError(stderrors.New("boom"))
	assert.Equal(t, CodeInternalError, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.HTTPStatus)
}

func TestErrorStringIncludesDetailAndCause(t *testing.T) {
	e := ErrProviderError.WithDetail("401").WithError(stderrors.New("invalid api key"))
	assert.Equal(t, "[5005] AI provider error (401): invalid api key", e.Error())
	assert.Equal(t, "[1002] unauthorized", ErrUnauthorized.Error())
}

func TestUnknownCodeMapsTo500(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, New(ErrorCode("9999"), "x").HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, ErrTooManyRequests.HTTPStatus)
}

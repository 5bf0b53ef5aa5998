package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{0, ErrorTypeNetwork},
		{429, ErrorTypeRateLimit},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{410, ErrorTypeNotFound},
		{400, ErrorTypeClient},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{302, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.code))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(403))
	assert.False(t, IsRetryableStatusCode(404))
}

func TestFetchError(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := &FetchError{Page: 7, URL: "https://x", Type: ErrorTypeNetwork, Err: cause}

	assert.Equal(t, "fetch page 7: network: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	withStatus := &FetchError{Page: 2, StatusCode: 503, Type: ErrorTypeServerError}
	assert.Equal(t, "fetch page 2: server_error (status 503)", withStatus.Error())

	wrapped := fmt.Errorf("scrape: %w", withStatus)
	var fe *FetchError
	assert.True(t, stderrors.As(wrapped, &fe))
	assert.Equal(t, 2, fe.Page)
	assert.True(t, IsRetryableError(wrapped))
}

func TestTransferError(t *testing.T) {
	err := &TransferError{Filename: "a.pdf", StatusCode: 404, Type: ErrorTypeNotFound}
	assert.Equal(t, "transfer a.pdf: not_found (status 404)", err.Error())
	assert.False(t, IsRetryableError(err))

	assert.False(t, IsRetryableError(stderrors.New("plain")))
}

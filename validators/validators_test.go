package validators_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanseartic/jsonrpcd/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRequest(remoteAddr string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	if remoteAddr != "" {
		request.RemoteAddr = remoteAddr
	}
	return request
}

func TestSizeValidatorAllowsSmallBodies(t *testing.T) {
	v := validators.NewSizeValidator(16)

	assert.NoError(t, v.Validate(newRequest(""), []byte(`{"method":"a"}`)))
}

func TestSizeValidatorRejectsOversizedBodies(t *testing.T) {
	v := validators.NewSizeValidator(4)

	err := v.Validate(newRequest(""), []byte(`{"method":"a"}`))

	require.Error(t, err)
	var validationErr *validators.Error
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, validationErr.Status)
}

func TestSizeValidatorDefaultLimit(t *testing.T) {
	v := validators.NewSizeValidator(0)

	assert.NoError(t, v.Validate(newRequest(""), make([]byte, validators.DefaultMaxBodyBytes)))
	assert.Error(t, v.Validate(newRequest(""), make([]byte, validators.DefaultMaxBodyBytes+1)))
}

func TestThrottleValidatorEnforcesBurst(t *testing.T) {
	v := validators.NewThrottleValidator(1, 2, zap.NewNop())
	request := newRequest("203.0.113.5:1111")

	assert.NoError(t, v.Validate(request, nil))
	assert.NoError(t, v.Validate(request, nil))

	err := v.Validate(request, nil)
	require.Error(t, err)
	var validationErr *validators.Error
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, http.StatusTooManyRequests, validationErr.Status)
}

func TestThrottleValidatorTracksClientsSeparately(t *testing.T) {
	v := validators.NewThrottleValidator(1, 1, zap.NewNop())

	assert.NoError(t, v.Validate(newRequest("203.0.113.5:1111"), nil))
	assert.Error(t, v.Validate(newRequest("203.0.113.5:2222"), nil))
	assert.NoError(t, v.Validate(newRequest("203.0.113.99:1111"), nil))
}

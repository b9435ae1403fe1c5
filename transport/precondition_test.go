package transport_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hanseartic/jsonrpcd/rpc"
	"github.com/hanseartic/jsonrpcd/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEmptyBodyIsNotHandled(t *testing.T) {
	tests := []struct {
		name string
		ex   transport.Exchange
	}{
		{"empty POST", transport.Exchange{Method: http.MethodPost, ContentType: "application/json"}},
		{"empty GET", transport.Exchange{Method: http.MethodGet}},
		{"empty with bad content type", transport.Exchange{Method: http.MethodPost, ContentType: "text/html"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handled, rejection := transport.Check(tc.ex)
			assert.False(t, handled)
			assert.Nil(t, rejection)
		})
	}
}

func TestCheckAcceptsPostJSON(t *testing.T) {
	tests := []string{
		"application/json",
		"application/json; charset=utf-8",
		"Application/JSON",
		"APPLICATION/JSON; charset=UTF-8",
	}
	for _, contentType := range tests {
		t.Run(contentType, func(t *testing.T) {
			handled, rejection := transport.Check(transport.Exchange{
				Body:        []byte(`{}`),
				Method:      http.MethodPost,
				ContentType: contentType,
			})
			assert.True(t, handled)
			assert.Nil(t, rejection)
		})
	}
}

func TestCheckRejectsNonPostMethod(t *testing.T) {
	handled, rejection := transport.Check(transport.Exchange{
		Body:        []byte(`{}`),
		Method:      http.MethodGet,
		ContentType: "application/json",
	})

	assert.True(t, handled)
	require.NotNil(t, rejection)
	assert.Equal(t, rpc.CodeServerRejected, rejection.Err.Code)
	assert.Contains(t, rejection.Err.Message, "GET")
	assert.Equal(t, http.StatusMethodNotAllowed, rejection.Effect.Status)
	assert.Equal(t, "POST", rejection.Effect.Header.Get("Access-Control-Allow-Methods"))
	require.NotNil(t, rejection.Err.Data)
	assert.Equal(t, map[string]string{"method": "POST"}, rejection.Err.Data.Allowed)
	assert.Equal(t, map[string]string{"method": "GET"}, rejection.Err.Data.Received)
	assert.Equal(t, `{}`, rejection.Err.Data.Request)
}

func TestCheckMethodComparisonIsCaseSensitive(t *testing.T) {
	handled, rejection := transport.Check(transport.Exchange{
		Body:        []byte(`{}`),
		Method:      "post",
		ContentType: "application/json",
	})

	assert.True(t, handled)
	require.NotNil(t, rejection)
	assert.Equal(t, http.StatusMethodNotAllowed, rejection.Effect.Status)
}

func TestCheckRejectsBadContentType(t *testing.T) {
	handled, rejection := transport.Check(transport.Exchange{
		Body:        []byte(`{}`),
		Method:      http.MethodPost,
		ContentType: "text/plain",
	})

	assert.True(t, handled)
	require.NotNil(t, rejection)
	assert.Equal(t, rpc.CodeServerRejected, rejection.Err.Code)
	assert.Contains(t, rejection.Err.Message, "text/plain")
	assert.Equal(t, http.StatusBadRequest, rejection.Effect.Status)
	assert.Empty(t, rejection.Effect.Header)
	require.NotNil(t, rejection.Err.Data)
	assert.Equal(t, map[string]string{"content-type": "application/json"}, rejection.Err.Data.Allowed)
	assert.Equal(t, map[string]string{"content-type": "text/plain"}, rejection.Err.Data.Received)
}

func TestCheckEmptyContentTypeIsRejected(t *testing.T) {
	_, rejection := transport.Check(transport.Exchange{
		Body:   []byte(`{}`),
		Method: http.MethodPost,
	})

	require.NotNil(t, rejection)
	assert.Equal(t, http.StatusBadRequest, rejection.Effect.Status)
}

func TestCheckContentTypeTakesPriorityOverMethod(t *testing.T) {
	handled, rejection := transport.Check(transport.Exchange{
		Body:        []byte(`{}`),
		Method:      http.MethodDelete,
		ContentType: "text/html",
	})

	assert.True(t, handled)
	require.NotNil(t, rejection)
	// The content-type finding decides the message and the status.
	assert.Contains(t, rejection.Err.Message, "text/html")
	assert.NotContains(t, rejection.Err.Message, "DELETE")
	assert.Equal(t, http.StatusBadRequest, rejection.Effect.Status)
	// Both findings are still recorded.
	require.NotNil(t, rejection.Err.Data)
	assert.Equal(t, map[string]string{
		"content-type": "application/json",
		"method":       "POST",
	}, rejection.Err.Data.Allowed)
	assert.Equal(t, map[string]string{
		"content-type": "text/html",
		"method":       "DELETE",
	}, rejection.Err.Data.Received)
}

func TestRejectionDescriptor(t *testing.T) {
	_, rejection := transport.Check(transport.Exchange{
		Body:        []byte(`{}`),
		Method:      http.MethodGet,
		ContentType: "application/json",
	})
	require.NotNil(t, rejection)

	assert.JSONEq(t,
		`{
			"id": null,
			"jsonrpc": "2.0",
			"error": {
				"code": -32400,
				"message": "Method \"GET\" is not allowed; use POST.",
				"data": {
					"allowed": {"method": "POST"},
					"received": {"method": "GET"},
					"request": "{}"
				}
			}
		}`,
		string(rejection.Descriptor()))
}

func TestEffectApply(t *testing.T) {
	recorder := httptest.NewRecorder()
	effect := transport.Effect{
		Status: http.StatusMethodNotAllowed,
		Header: http.Header{"Access-Control-Allow-Methods": []string{"POST"}},
	}

	effect.Apply(recorder)

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "POST", recorder.Header().Get("Access-Control-Allow-Methods"))
}

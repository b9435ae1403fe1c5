package transport_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/hanseartic/jsonrpcd/transport"
	"github.com/hanseartic/jsonrpcd/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mathService struct{}

func (s *mathService) Sum(a, b float64) float64 { return a + b }

// rejectAll fails every exchange with the configured status.
type rejectAll struct {
	status int
}

func (v rejectAll) Validate(r *http.Request, body []byte) error {
	return &validators.Error{Status: v.status, Message: "rejected by test validator"}
}

func newTestTransport(t *testing.T, options ...transport.TransportOption) *transport.Transport {
	t.Helper()
	registry := dispatch.NewRegistry(nil, zap.NewNop())
	require.True(t, registry.Bind(&mathService{}))
	dispatcher, err := dispatch.NewDispatcher(registry, dispatch.NewBlocklist(), zap.NewNop())
	require.NoError(t, err)
	tr, err := transport.New(dispatcher, zap.NewNop(), options...)
	require.NoError(t, err)
	return tr
}

func postJSON(body string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	return request
}

func TestNewTransportRequiresDependencies(t *testing.T) {
	dispatcher, err := dispatch.NewDispatcher(dispatch.NewRegistry(nil, zap.NewNop()), dispatch.NewBlocklist(), zap.NewNop())
	require.NoError(t, err)

	_, err = transport.New(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = transport.New(dispatcher, nil)
	assert.Error(t, err)

	_, err = transport.New(dispatcher, zap.NewNop(), transport.WithRPCPath("no-slash"))
	assert.Error(t, err)
}

func TestHandleRPCSingleRequest(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, postJSON(`{"method":"sum","params":[2,3],"id":1}`))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json; charset=UTF-8", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", recorder.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST", recorder.Header().Get("Access-Control-Allow-Methods"))
	assert.JSONEq(t, `{"id":1,"jsonrpc":"2.0","result":5}`, recorder.Body.String())
}

func TestHandleRPCBatchRequest(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, postJSON(`[{"method":"sum","params":[1,2],"id":"a"},{"method":"sum","params":[3,4],"id":"b"}]`))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t,
		`[{"id":"a","jsonrpc":"2.0","result":3},{"id":"b","jsonrpc":"2.0","result":7}]`,
		recorder.Body.String())
}

func TestHandleRPCNotificationWritesNothing(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, postJSON(`{"method":"sum","params":[1,2]}`))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Zero(t, recorder.Body.Len())
	assert.Empty(t, recorder.Header().Get("Content-Type"))
	// CORS headers go out even when the body stays empty.
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleRPCErrorResponseShape(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()
	body := `{"method":"nonesuch","id":7}`

	tr.HandleRPC(recorder, postJSON(body))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t,
		`{
			"id": 7,
			"jsonrpc": "2.0",
			"error": {
				"code": -32601,
				"message": "Requested method is not defined.",
				"data": {"request": "{\"method\":\"nonesuch\",\"id\":7}"}
			}
		}`,
		recorder.Body.String())
}

func TestHandleRPCEmptyBodyWritesNothing(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, postJSON(""))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Zero(t, recorder.Body.Len())
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleRPCRejectsWrongMethod(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/rpc", strings.NewReader(`{}`))
	request.Header.Set("Content-Type", "application/json")

	tr.HandleRPC(recorder, request)

	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "POST", recorder.Header().Get("Access-Control-Allow-Methods"))
	assert.Zero(t, recorder.Body.Len())
}

func TestHandleRPCRejectsWrongContentType(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(`{}`))
	request.Header.Set("Content-Type", "text/plain")

	tr.HandleRPC(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Zero(t, recorder.Body.Len())
}

func TestHandleRPCRecordsLastError(t *testing.T) {
	tr := newTestTransport(t)
	require.Nil(t, tr.LastError())

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/rpc", strings.NewReader(`{}`))
	request.Header.Set("Content-Type", "application/json")
	tr.HandleRPC(recorder, request)

	descriptor := tr.LastError()
	require.NotNil(t, descriptor)
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
		string(descriptor))
}

func TestHandleRPCManualErrorHandling(t *testing.T) {
	tr := newTestTransport(t, transport.WithManualErrorHandling())
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/rpc", strings.NewReader(`{}`))
	request.Header.Set("Content-Type", "application/json")

	tr.HandleRPC(recorder, request)

	// No automatic answer; the owner reads LastError and decides.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Methods"))
	assert.NotNil(t, tr.LastError())
}

func TestHandleRPCOptionsPreflight(t *testing.T) {
	tr := newTestTransport(t)
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, httptest.NewRequest(http.MethodOptions, "/rpc", nil))

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "*", recorder.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", recorder.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST", recorder.Header().Get("Access-Control-Allow-Methods"))
}

func TestHandleRPCValidatorRejection(t *testing.T) {
	tr := newTestTransport(t, transport.WithValidators(rejectAll{status: http.StatusRequestEntityTooLarge}))
	recorder := httptest.NewRecorder()

	tr.HandleRPC(recorder, postJSON(`{"method":"sum","params":[1,2],"id":1}`))

	assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	assert.Zero(t, recorder.Body.Len())
}

func TestRegisterHandlersMountsEndpoint(t *testing.T) {
	tr := newTestTransport(t, transport.WithRPCPath("/api/rpc"))
	mux := http.NewServeMux()
	tr.RegisterHandlers(mux)
	recorder := httptest.NewRecorder()

	request := httptest.NewRequest(http.MethodPost, "/api/rpc", strings.NewReader(`{"method":"sum","params":[5,6],"id":1}`))
	request.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"id":1,"jsonrpc":"2.0","result":11}`, recorder.Body.String())
}

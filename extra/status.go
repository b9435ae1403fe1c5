package extra

import (
	"encoding/json"
	"net/http"

	"github.com/hanseartic/jsonrpcd/config"
	"github.com/hanseartic/jsonrpcd/dispatch"
	"go.uber.org/zap"
)

// StatusResponse represents the response structure for the status endpoint.
type StatusResponse struct {
	Server         string `json:"server,omitempty"`
	Version        string `json:"version,omitempty"`
	Config         string `json:"config"`
	Handlers       int    `json:"handlers"`
	BlockedMethods int    `json:"blockedMethods"`
}

// StatusHandler creates an HTTP handler for checking daemon status.
func StatusHandler(cfg config.IConfig, logger *zap.Logger, dispatcher *dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handlerLogger := logger.With(zap.String("handler", "StatusHandler"))
		w.Header().Set("Content-Type", "application/json")

		// Always 200; the body carries the health detail.
		w.WriteHeader(http.StatusOK)

		response := StatusResponse{Config: "none"}

		if err := cfg.Status(r.Context()); err != nil {
			handlerLogger.Error("Failed to get config status", zap.Error(err))
			response.Config = "error"
		} else {
			response.Config = "ok"
		}

		if name, err := cfg.ServerName(); err == nil {
			response.Server = name
		}
		if version, err := cfg.ServerVersion(); err == nil {
			response.Version = version
		}

		if dispatcher != nil {
			response.Handlers = dispatcher.Registry().Len()
			response.BlockedMethods = len(dispatcher.Blocklist().Blocked())
		}

		if err := json.NewEncoder(w).Encode(response); err != nil {
			handlerLogger.Error("Failed to encode status response", zap.Error(err))
		}
	}
}

// Package server assembles the daemon: dispatch state, built-in handler
// types, transport, and the HTTP listener, all driven by an IConfig.
package server

import (
	"context"
	"net/http"

	"github.com/hanseartic/jsonrpcd/config"
	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/hanseartic/jsonrpcd/transport"
	"go.uber.org/zap"
)

// ServerBuilder collects everything Start assembles before the listener
// comes up. Options mutate it; the finalize step wires it together.
type ServerBuilder struct {
	ctx        context.Context
	logger     *zap.Logger
	cfg        config.IConfig
	listenAddr string
	catalog    *dispatch.Catalog
	registry   *dispatch.Registry
	blocklist  *dispatch.Blocklist
	dispatcher *dispatch.Dispatcher
	transport  *transport.Transport
	mux        *http.ServeMux

	// transportOptions are applied after the config-derived ones, so an
	// explicit option wins over the file.
	transportOptions []transport.TransportOption

	// instances are handler objects bound after the configured
	// descriptors, in the order they were supplied.
	instances []any
}

// Dispatcher returns the assembled dispatcher.
func (b *ServerBuilder) Dispatcher() *dispatch.Dispatcher { return b.dispatcher }

// Transport returns the assembled transport. Nil until finalize ran.
func (b *ServerBuilder) Transport() *transport.Transport { return b.transport }

// Mux returns the HTTP mux the endpoints are mounted on.
func (b *ServerBuilder) Mux() *http.ServeMux { return b.mux }

// ServerOption defines a function type for configuring the ServerBuilder.
type ServerOption func(*ServerBuilder) error

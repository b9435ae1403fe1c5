package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hanseartic/jsonrpcd/config"
	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/hanseartic/jsonrpcd/extra"
	"github.com/hanseartic/jsonrpcd/handlers"
	"github.com/hanseartic/jsonrpcd/transport"
	"github.com/hanseartic/jsonrpcd/validators"
	"go.uber.org/zap"
)

// Start assembles the daemon from the configuration and the given options
// and brings up the listener. It returns a channel reporting listener
// errors; the server shuts down gracefully when ctx is cancelled.
func Start(ctx context.Context, logger *zap.Logger, cfg config.IConfig, options ...ServerOption) (
	<-chan error,
	error,
) {
	builder, err := buildServer(ctx, logger, cfg, options...)
	if err != nil {
		return nil, err
	}

	serverInstance, listenerErrChan, startErr := transport.StartHTTPServer(
		ctx,
		logger,
		cfg,
		builder.mux,
		builder.listenAddr,
	)
	if startErr != nil {
		return nil, fmt.Errorf("failed to start HTTP server: %w", startErr)
	}

	go func() {
		select {
		case err, ok := <-listenerErrChan:
			if ok && err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Server listener failed", zap.Error(err))
			} else {
				logger.Info("Server listener stopped")
			}
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			transport.ShutdownHTTPServer(shutdownCtx, logger, serverInstance)
			logger.Info("Server stopped")
		}
	}()

	return listenerErrChan, nil
}

// buildServer wires dispatch state, configured handlers, and the transport
// onto a fresh mux without starting the listener.
func buildServer(ctx context.Context, logger *zap.Logger, cfg config.IConfig, options ...ServerOption) (*ServerBuilder, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	listenAddr, err := cfg.ListenAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to get listen address: %w", err)
	}

	catalog := dispatch.NewCatalog()
	registry := dispatch.NewRegistry(catalog, logger)
	blocklist := dispatch.NewBlocklist()
	dispatcher, err := dispatch.NewDispatcher(registry, blocklist, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	// Built-in handler types available to configured descriptors.
	catalog.Register("echo", func() any { return handlers.NewEcho() })
	catalog.Register("introspect", func() any { return handlers.NewIntrospect(dispatcher) })

	builder := &ServerBuilder{
		ctx:        ctx,
		logger:     logger,
		cfg:        cfg,
		listenAddr: listenAddr,
		catalog:    catalog,
		registry:   registry,
		blocklist:  blocklist,
		dispatcher: dispatcher,
		mux:        http.NewServeMux(),
	}

	logger.Debug("Applying server options", zap.Int("count", len(options)))
	for _, option := range options {
		if err := option(builder); err != nil {
			return nil, fmt.Errorf("failed to apply server option: %w", err)
		}
	}

	if err := builder.bindConfigured(); err != nil {
		return nil, err
	}
	for _, instance := range builder.instances {
		if !registry.Bind(instance) {
			logger.Warn("Skipping handler instance that failed to bind",
				zap.String("type", fmt.Sprintf("%T", instance)))
		}
	}

	transportOptions, err := builder.transportOptionsFromConfig()
	if err != nil {
		return nil, err
	}
	builder.transport, err = transport.New(dispatcher, logger, append(transportOptions, builder.transportOptions...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	builder.transport.RegisterHandlers(builder.mux)

	logger.Info("Registering status handler", zap.String("path", "/status"))
	builder.mux.HandleFunc("/status", extra.StatusHandler(cfg, logger, dispatcher))

	return builder, nil
}

// bindConfigured binds the handler descriptors and blocklist entries named
// in the configuration.
func (b *ServerBuilder) bindConfigured() error {
	descriptors, err := b.cfg.Handlers()
	if err != nil {
		return fmt.Errorf("failed to load handler descriptors: %w", err)
	}
	for _, descriptor := range descriptors {
		if !b.registry.Bind(descriptor) {
			b.logger.Warn("Skipping configured handler that failed to bind",
				zap.Any("descriptor", descriptor))
		}
	}

	blocked, err := b.cfg.BlockedMethods()
	if err != nil {
		return fmt.Errorf("failed to load blocked methods: %w", err)
	}
	for _, name := range blocked {
		b.blocklist.Block(name)
	}
	return nil
}

// transportOptionsFromConfig derives transport options from the
// configuration: the endpoint path and the request limit validators.
func (b *ServerBuilder) transportOptionsFromConfig() ([]transport.TransportOption, error) {
	var options []transport.TransportOption

	rpcPath, err := b.cfg.RPCPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get RPC path: %w", err)
	}
	if rpcPath != "" {
		options = append(options, transport.WithRPCPath(rpcPath))
	}

	maxBody, err := b.cfg.MaxBodyBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to get body size limit: %w", err)
	}
	if maxBody > 0 {
		options = append(options, transport.WithValidators(validators.NewSizeValidator(maxBody)))
	}

	throttleRate, err := b.cfg.ThrottleRate()
	if err != nil {
		return nil, fmt.Errorf("failed to get throttle rate: %w", err)
	}
	if throttleRate > 0 {
		burst, err := b.cfg.ThrottleBurst()
		if err != nil {
			return nil, fmt.Errorf("failed to get throttle burst: %w", err)
		}
		options = append(options, transport.WithValidators(validators.NewThrottleValidator(throttleRate, burst, b.logger)))
	}

	return options, nil
}

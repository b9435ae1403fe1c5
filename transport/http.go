package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/hanseartic/jsonrpcd/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
)

// StartHTTPServer starts the HTTP or HTTPS listener described by the
// configuration and serves mux on it. It returns the server plus a channel
// reporting listener errors that occur after startup; problems during setup
// are returned immediately instead.
func StartHTTPServer(ctx context.Context, logger *zap.Logger, cfg config.IConfig, mux http.Handler, overrideListenAddr string) (*http.Server, <-chan error, error) {
	if logger == nil {
		return nil, nil, errors.New("logger cannot be nil")
	}
	if cfg == nil {
		return nil, nil, errors.New("config cannot be nil")
	}
	if mux == nil {
		return nil, nil, errors.New("http handler (mux) cannot be nil")
	}

	listenAddr := overrideListenAddr
	if listenAddr == "" {
		var err error
		listenAddr, err = cfg.ListenAddr()
		if err != nil {
			logger.Error("Failed to get listen address from config", zap.Error(err))
			return nil, nil, fmt.Errorf("failed to get listen address: %w", err)
		}
	}

	server := &http.Server{
		Addr:         listenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	sslEnabled, err := cfg.SSLEnabled()
	if err != nil {
		logger.Warn("Failed to read SSL enabled setting, assuming disabled", zap.Error(err))
		sslEnabled = false
	}

	var certFile, keyFile string // manual mode only
	isACME := false

	if sslEnabled {
		sslMode, _ := cfg.SSLMode() // defaults to "manual"

		if sslMode == "acme" {
			isACME = true
			domains, err := cfg.SSLAcmeDomains()
			if err != nil || len(domains) == 0 {
				return nil, nil, fmt.Errorf("ACME mode requires at least one domain (config key 'ssl.acme_domains'): %w", err)
			}
			email, _ := cfg.SSLAcmeEmail() // optional
			cacheDir, err := cfg.SSLAcmeCacheDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get ACME cache directory: %w", err)
			}
			if err := os.MkdirAll(cacheDir, 0700); err != nil {
				return nil, nil, fmt.Errorf("failed to create ACME cache directory '%s': %w", cacheDir, err)
			}

			certManager := autocert.Manager{
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(domains...),
				Email:      email,
				Cache:      autocert.DirCache(cacheDir),
			}
			server.TLSConfig = certManager.TLSConfig()

			// ACME needs an HTTP listener for the http-01 challenge.
			go func() {
				challengeServer := &http.Server{
					Addr:    ":80",
					Handler: certManager.HTTPHandler(nil),
				}
				logger.Info("Starting ACME HTTP challenge listener", zap.String("addr", ":80"))
				if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("ACME HTTP challenge listener error", zap.Error(err))
				}
			}()
		} else {
			certFile, err = cfg.SSLCertFile()
			if err != nil || certFile == "" {
				return nil, nil, fmt.Errorf("manual SSL mode requires a certificate file path (config key 'ssl.cert_file'): %w", err)
			}
			keyFile, err = cfg.SSLKeyFile()
			if err != nil || keyFile == "" {
				return nil, nil, fmt.Errorf("manual SSL mode requires a private key file path (config key 'ssl.key_file'): %w", err)
			}
		}
	}

	// Reports listener errors occurring after startup.
	listenerErrChan := make(chan error, 1)

	go func() {
		defer close(listenerErrChan)

		if sslEnabled {
			logger.Info("Starting HTTPS server", zap.String("addr", listenAddr), zap.Bool("acme", isACME))
			var err error
			if isACME {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServeTLS(certFile, keyFile)
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTPS server listener error", zap.Error(err))
				listenerErrChan <- err
			} else {
				logger.Info("HTTPS server listener stopped gracefully")
			}
		} else {
			logger.Info("Starting HTTP server", zap.String("addr", listenAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server listener error", zap.Error(err))
				listenerErrChan <- err
			} else {
				logger.Info("HTTP server listener stopped gracefully")
			}
		}
	}()

	return server, listenerErrChan, nil
}

// ShutdownHTTPServer attempts a graceful shutdown of the server.
func ShutdownHTTPServer(ctx context.Context, logger *zap.Logger, server *http.Server) {
	if server == nil {
		logger.Warn("Shutdown requested but server instance is nil")
		return
	}
	logger.Info("Shutting down HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server shut down gracefully")
	}
}

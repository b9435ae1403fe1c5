package server

import (
	"errors"

	"github.com/hanseartic/jsonrpcd/transport"
	"go.uber.org/zap"
)

// WithListenAddr overrides the listen address from the config. An empty
// addr means "use the config value".
func WithListenAddr(addr string) ServerOption {
	return func(b *ServerBuilder) error {
		if addr != "" {
			b.listenAddr = addr
			b.logger.Info("Overriding listen address", zap.String("newAddress", addr))
		}
		return nil
	}
}

// WithType registers a constructor under a catalog type name, making it
// available to configured handler descriptors.
func WithType(name string, constructor func() any) ServerOption {
	return func(b *ServerBuilder) error {
		if name == "" || constructor == nil {
			return errors.New("handler type registration needs a name and a constructor")
		}
		b.catalog.Register(name, constructor)
		return nil
	}
}

// WithHandlers binds the given handler instances after the configured
// descriptors, in the order supplied.
func WithHandlers(instances ...any) ServerOption {
	return func(b *ServerBuilder) error {
		b.instances = append(b.instances, instances...)
		return nil
	}
}

// WithBlockedMethods blocks the given method names in addition to the
// configured ones.
func WithBlockedMethods(names ...string) ServerOption {
	return func(b *ServerBuilder) error {
		for _, name := range names {
			b.blocklist.Block(name)
		}
		return nil
	}
}

// WithTransportOptions forwards options to the transport, applied after
// the config-derived ones.
func WithTransportOptions(options ...transport.TransportOption) ServerOption {
	return func(b *ServerBuilder) error {
		b.transportOptions = append(b.transportOptions, options...)
		return nil
	}
}

// WithManualErrorHandling turns off the transport's automatic answer for
// precondition rejections.
func WithManualErrorHandling() ServerOption {
	return WithTransportOptions(transport.WithManualErrorHandling())
}

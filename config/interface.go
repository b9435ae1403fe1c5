package config

import "context"

// IConfig is the configuration surface the daemon reads. Implementations
// must be safe for concurrent use; getters return the value current at the
// time of the call.
type IConfig interface {
	// Core server settings
	ListenAddr() (string, error)
	ServerName() (string, error)
	ServerVersion() (string, error)
	LogLevel() (string, error)
	RPCPath() (string, error)

	// Dispatch settings
	Handlers() ([]map[string]any, error) // descriptors bound at startup, each with a "type" member
	BlockedMethods() ([]string, error)

	// Request limits; zero disables the corresponding check
	MaxBodyBytes() (int64, error)
	ThrottleRate() (float64, error) // sustained requests per second per client
	ThrottleBurst() (int, error)

	// SSL settings
	SSLEnabled() (bool, error)
	SSLMode() (string, error)          // Returns "manual" or "acme"
	SSLCertFile() (string, error)      // Path to certificate file (manual mode)
	SSLKeyFile() (string, error)       // Path to private key file (manual mode)
	SSLAcmeDomains() ([]string, error) // List of domains for ACME
	SSLAcmeEmail() (string, error)     // Contact email for ACME
	SSLAcmeCacheDir() (string, error)  // Directory to cache ACME certificates

	// Lifecycle & Status
	Status(ctx context.Context) error
	Close() error
}

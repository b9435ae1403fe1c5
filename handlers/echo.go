// Package handlers ships the built-in handler types the daemon can bind
// from configuration.
package handlers

// Echo returns its input, optionally prefixed. It is the smallest
// conventional handler and doubles as a wiring check in deployments.
type Echo struct {
	Prefix string `mapstructure:"prefix"`
}

// NewEcho creates an Echo handler with no prefix.
func NewEcho() *Echo { return &Echo{} }

func (e *Echo) Echo(message string) string { return e.Prefix + message }

func (e *Echo) Ping() string { return "pong" }

package config

import (
	"context"
	"errors"
	"sync"
)

var _ IConfig = (*InternalConfig)(nil)
var ErrNotFound = errors.New("not found")

// InternalConfig implements IConfig with in-memory storage. It is meant for
// tests and embedded use.
type InternalConfig struct {
	mu                  sync.RWMutex
	ServerAddress       string
	ServerNameValue     string
	ServerVersionValue  string
	LogLevelValue       string
	RPCPathValue        string
	HandlersValue       []map[string]any
	BlockedMethodsValue []string
	MaxBodyBytesValue   int64
	ThrottleRateValue   float64
	ThrottleBurstValue  int

	SSLEnabledValue      bool
	SSLModeValue         string
	SSLCertFileValue     string
	SSLKeyFileValue      string
	SSLAcmeDomainsValue  []string
	SSLAcmeEmailValue    string
	SSLAcmeCacheDirValue string
}

// NewInternalConfig creates a new in-memory configuration.
func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		ServerAddress:        ":8080",
		ServerNameValue:      "Unknown",
		ServerVersionValue:   "0.0.0",
		LogLevelValue:        "info",
		SSLModeValue:         "manual",
		SSLAcmeCacheDirValue: "./.autocert-cache",
	}
}

func (c *InternalConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerAddress, nil
}

func (c *InternalConfig) SetListenAddr(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ServerAddress = addr
}

func (c *InternalConfig) ServerName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerNameValue, nil
}

func (c *InternalConfig) ServerVersion() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ServerVersionValue, nil
}

func (c *InternalConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LogLevelValue, nil
}

func (c *InternalConfig) RPCPath() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.RPCPathValue, nil
}

func (c *InternalConfig) SetRPCPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RPCPathValue = path
}

func (c *InternalConfig) Handlers() ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handlersCopy := make([]map[string]any, 0, len(c.HandlersValue))
	for _, descriptor := range c.HandlersValue {
		descriptorCopy := make(map[string]any, len(descriptor))
		for k, v := range descriptor {
			descriptorCopy[k] = v
		}
		handlersCopy = append(handlersCopy, descriptorCopy)
	}
	return handlersCopy, nil
}

func (c *InternalConfig) AddHandler(descriptor map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.HandlersValue = append(c.HandlersValue, descriptor)
}

func (c *InternalConfig) BlockedMethods() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.BlockedMethodsValue...), nil
}

func (c *InternalConfig) SetBlockedMethods(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BlockedMethodsValue = append([]string{}, names...)
}

func (c *InternalConfig) MaxBodyBytes() (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.MaxBodyBytesValue, nil
}

func (c *InternalConfig) ThrottleRate() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ThrottleRateValue, nil
}

func (c *InternalConfig) ThrottleBurst() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ThrottleBurstValue, nil
}

// --- SSL methods ---

func (c *InternalConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLEnabledValue, nil
}

func (c *InternalConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLModeValue, nil
}

func (c *InternalConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLCertFileValue, nil
}

func (c *InternalConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLKeyFileValue, nil
}

func (c *InternalConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	domainsCopy := make([]string, len(c.SSLAcmeDomainsValue))
	copy(domainsCopy, c.SSLAcmeDomainsValue)
	return domainsCopy, nil
}

func (c *InternalConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeEmailValue, nil
}

func (c *InternalConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SSLAcmeCacheDirValue, nil
}

func (c *InternalConfig) Close() error {
	return nil
}

func (c *InternalConfig) Status(ctx context.Context) error {
	return nil
}

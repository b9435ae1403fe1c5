package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var _ IConfig = (*YamlConfig)(nil)

// YamlConfig implements IConfig with YAML file-based storage.
type YamlConfig struct {
	mu         sync.RWMutex
	configPath string
	logger     *zap.Logger

	listenAddr    string
	serverName    string
	serverVersion string
	logLevel      string
	rpcPath       string

	handlers       []map[string]any
	blockedMethods []string

	maxBodyBytes  int64
	throttleRate  float64
	throttleBurst int

	// SSL fields
	sslEnabled      bool
	sslMode         string
	sslCertFile     string
	sslKeyFile      string
	sslAcmeDomains  []string
	sslAcmeEmail    string
	sslAcmeCacheDir string
}

// yamlConfig mirrors the file layout.
type yamlConfig struct {
	Server struct {
		Address  string `yaml:"address"`
		Name     string `yaml:"name"`
		Version  string `yaml:"version"`
		LogLevel string `yaml:"log_level"`
		RPCPath  string `yaml:"rpc_path"`
		SSL      struct {
			Enabled      bool     `yaml:"enabled"`
			Mode         string   `yaml:"mode"`
			CertFile     string   `yaml:"cert_file"`
			KeyFile      string   `yaml:"key_file"`
			AcmeDomains  []string `yaml:"acme_domains"`
			AcmeEmail    string   `yaml:"acme_email"`
			AcmeCacheDir string   `yaml:"acme_cache_dir"`
		} `yaml:"ssl"`
	} `yaml:"server"`

	Handlers []map[string]any `yaml:"handlers"`

	BlockedMethods []string `yaml:"blocked_methods"`

	Limits struct {
		MaxBodyBytes      int64   `yaml:"max_body_bytes"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"limits"`
}

// NewYamlConfig creates a new YAML-based configuration and loads it once.
func NewYamlConfig(configPath string, logger *zap.Logger) (*YamlConfig, error) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	config := &YamlConfig{
		configPath:      configPath,
		logger:          logger,
		sslMode:         "manual",
		sslAcmeCacheDir: "./.autocert-cache",
	}

	if err := config.Update(); err != nil {
		return nil, err
	}
	return config, nil
}

// Path returns the backing file path.
func (c *YamlConfig) Path() string { return c.configPath }

// Update reloads configuration from the YAML file.
func (c *YamlConfig) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("Updating configuration from YAML file", zap.String("path", c.configPath))

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.logger.Error("Failed to read config file", zap.Error(err))
		return err
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		c.logger.Error("Failed to parse YAML", zap.Error(err))
		return err
	}

	c.listenAddr = yamlCfg.Server.Address
	c.serverName = yamlCfg.Server.Name
	c.serverVersion = yamlCfg.Server.Version
	c.logLevel = yamlCfg.Server.LogLevel
	c.rpcPath = yamlCfg.Server.RPCPath

	c.sslEnabled = yamlCfg.Server.SSL.Enabled
	c.sslMode = strings.ToLower(yamlCfg.Server.SSL.Mode)
	if c.sslMode != "acme" {
		c.sslMode = "manual"
	}
	c.sslCertFile = yamlCfg.Server.SSL.CertFile
	c.sslKeyFile = yamlCfg.Server.SSL.KeyFile
	c.sslAcmeDomains = yamlCfg.Server.SSL.AcmeDomains
	c.sslAcmeEmail = yamlCfg.Server.SSL.AcmeEmail
	c.sslAcmeCacheDir = yamlCfg.Server.SSL.AcmeCacheDir
	if c.sslAcmeCacheDir == "" {
		c.sslAcmeCacheDir = "./.autocert-cache"
	}

	newHandlers := make([]map[string]any, 0, len(yamlCfg.Handlers))
	for _, descriptor := range yamlCfg.Handlers {
		descriptorCopy := make(map[string]any, len(descriptor))
		for k, v := range descriptor {
			descriptorCopy[k] = v
		}
		newHandlers = append(newHandlers, descriptorCopy)
	}
	c.handlers = newHandlers

	c.blockedMethods = append([]string{}, yamlCfg.BlockedMethods...)

	c.maxBodyBytes = yamlCfg.Limits.MaxBodyBytes
	c.throttleRate = yamlCfg.Limits.RequestsPerSecond
	c.throttleBurst = yamlCfg.Limits.Burst

	return nil
}

// --- IConfig implementation ---

func (c *YamlConfig) Close() error { return nil }

func (c *YamlConfig) ListenAddr() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listenAddr, nil
}

func (c *YamlConfig) ServerName() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverName, nil
}

func (c *YamlConfig) ServerVersion() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverVersion, nil
}

func (c *YamlConfig) LogLevel() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logLevel, nil
}

func (c *YamlConfig) RPCPath() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rpcPath, nil
}

func (c *YamlConfig) Handlers() ([]map[string]any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	handlersCopy := make([]map[string]any, 0, len(c.handlers))
	for _, descriptor := range c.handlers {
		descriptorCopy := make(map[string]any, len(descriptor))
		for k, v := range descriptor {
			descriptorCopy[k] = v
		}
		handlersCopy = append(handlersCopy, descriptorCopy)
	}
	return handlersCopy, nil
}

func (c *YamlConfig) BlockedMethods() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string{}, c.blockedMethods...), nil
}

func (c *YamlConfig) MaxBodyBytes() (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxBodyBytes, nil
}

func (c *YamlConfig) ThrottleRate() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.throttleRate, nil
}

func (c *YamlConfig) ThrottleBurst() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.throttleBurst, nil
}

func (c *YamlConfig) Status(ctx context.Context) error {
	if _, err := os.Stat(c.configPath); err != nil {
		c.logger.Error("YAML config file status check failed", zap.String("path", c.configPath), zap.Error(err))
		return fmt.Errorf("config file error: %w", err)
	}
	return nil
}

// --- SSL methods ---

func (c *YamlConfig) SSLEnabled() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslEnabled, nil
}

func (c *YamlConfig) SSLMode() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslMode, nil
}

func (c *YamlConfig) SSLCertFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslCertFile, nil
}

func (c *YamlConfig) SSLKeyFile() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslKeyFile, nil
}

func (c *YamlConfig) SSLAcmeDomains() ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	domainsCopy := make([]string, len(c.sslAcmeDomains))
	copy(domainsCopy, c.sslAcmeDomains)
	return domainsCopy, nil
}

func (c *YamlConfig) SSLAcmeEmail() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeEmail, nil
}

func (c *YamlConfig) SSLAcmeCacheDir() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sslAcmeCacheDir, nil
}

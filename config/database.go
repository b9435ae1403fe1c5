package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var _ IConfig = (*DatabaseConfig)(nil)

// DatabaseConfig implements IConfig with PostgreSQL-based storage. Every
// setting lives in the settings table as a JSON-encoded value, so an
// operator can change them without redeploying.
type DatabaseConfig struct {
	logger             *zap.Logger
	dbConnectionString string
}

// NewDatabaseConfig creates a new database-backed configuration.
func NewDatabaseConfig(dbConnectionString string, logger *zap.Logger) (*DatabaseConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseConfig{
		dbConnectionString: dbConnectionString,
		logger:             logger,
	}, nil
}

// Close closes any resources held by the config.
func (c *DatabaseConfig) Close() error {
	return nil
}

// --- IConfig implementation ---

func (c *DatabaseConfig) ListenAddr() (string, error) {
	return c.getSettingString("listen_address", ":8080")
}

func (c *DatabaseConfig) ServerName() (string, error) {
	return c.getSettingString("server_name", "jsonrpcd")
}

func (c *DatabaseConfig) ServerVersion() (string, error) {
	return c.getSettingString("server_version", "0.0.0")
}

func (c *DatabaseConfig) LogLevel() (string, error) {
	return c.getSettingString("log_level", "info")
}

func (c *DatabaseConfig) RPCPath() (string, error) {
	return c.getSettingString("rpc_path", "")
}

func (c *DatabaseConfig) Handlers() ([]map[string]any, error) {
	value, err := c.getSettingJSON("rpc_handlers")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rawSlice, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("setting 'rpc_handlers' is not an array (type: %T)", value)
	}
	descriptors := make([]map[string]any, 0, len(rawSlice))
	for i, item := range rawSlice {
		descriptor, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("non-object handler descriptor at index %d in setting 'rpc_handlers'", i)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

func (c *DatabaseConfig) BlockedMethods() ([]string, error) {
	return c.getSettingStringSlice("rpc_blocked_methods", []string{})
}

func (c *DatabaseConfig) MaxBodyBytes() (int64, error) {
	return c.getSettingInt64("limit_max_body_bytes", 0)
}

func (c *DatabaseConfig) ThrottleRate() (float64, error) {
	return c.getSettingFloat("limit_requests_per_second", 0)
}

func (c *DatabaseConfig) ThrottleBurst() (int, error) {
	value, err := c.getSettingInt64("limit_burst", 0)
	return int(value), err
}

func (c *DatabaseConfig) Status(ctx context.Context) error {
	db, err := sql.Open("postgres", c.dbConnectionString)
	if err != nil {
		c.logger.Error("DB connect failed", zap.Error(err))
		return err
	}
	defer db.Close()
	if err = db.PingContext(ctx); err != nil {
		c.logger.Error("DB ping failed", zap.Error(err))
		return err
	}
	return nil
}

// --- SSL methods ---

func (c *DatabaseConfig) SSLEnabled() (bool, error) {
	return c.getSettingBool("ssl_enabled", false)
}

func (c *DatabaseConfig) SSLMode() (string, error) {
	return c.getSettingString("ssl_mode", "manual")
}

func (c *DatabaseConfig) SSLCertFile() (string, error) {
	return c.getSettingString("ssl_cert_file", "")
}

func (c *DatabaseConfig) SSLKeyFile() (string, error) {
	return c.getSettingString("ssl_key_file", "")
}

func (c *DatabaseConfig) SSLAcmeDomains() ([]string, error) {
	return c.getSettingStringSlice("ssl_acme_domains", []string{})
}

func (c *DatabaseConfig) SSLAcmeEmail() (string, error) {
	return c.getSettingString("ssl_acme_email", "")
}

func (c *DatabaseConfig) SSLAcmeCacheDir() (string, error) {
	return c.getSettingString("ssl_acme_cache_dir", "./.autocert-cache")
}

// --- Database helpers ---

func (c *DatabaseConfig) getSettingRaw(key string) ([]byte, error) {
	db, err := sql.Open("postgres", c.dbConnectionString)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	var valueStr sql.NullString
	err = db.QueryRowContext(context.Background(), `SELECT value FROM settings WHERE key = $1 LIMIT 1`, key).Scan(&valueStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query setting '%s': %w", key, err)
	}
	if !valueStr.Valid {
		return nil, ErrNotFound
	}
	return []byte(valueStr.String), nil
}

func (c *DatabaseConfig) getSettingJSON(key string) (interface{}, error) {
	raw, err := c.getSettingRaw(key)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("unmarshal setting '%s': %w", key, err)
	}
	return value, nil
}

func (c *DatabaseConfig) getSettingString(key string, defaultValue string) (string, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	strValue, ok := value.(string)
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not a string (type: %T)", key, value)
	}
	return strValue, nil
}

func (c *DatabaseConfig) getSettingBool(key string, defaultValue bool) (bool, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	boolValue, ok := value.(bool)
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not a boolean (type: %T)", key, value)
	}
	return boolValue, nil
}

func (c *DatabaseConfig) getSettingInt64(key string, defaultValue int64) (int64, error) {
	value, err := c.getSettingFloat(key, float64(defaultValue))
	return int64(value), err
}

func (c *DatabaseConfig) getSettingFloat(key string, defaultValue float64) (float64, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	floatValue, ok := value.(float64)
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not a number (type: %T)", key, value)
	}
	return floatValue, nil
}

func (c *DatabaseConfig) getSettingStringSlice(key string, defaultValue []string) ([]string, error) {
	value, err := c.getSettingJSON(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return defaultValue, nil
		}
		return defaultValue, err
	}
	sliceInterface, ok := value.([]interface{})
	if !ok {
		return defaultValue, fmt.Errorf("setting '%s' is not an array (type: %T)", key, value)
	}
	strSlice := make([]string, 0, len(sliceInterface))
	for i, item := range sliceInterface {
		strVal, ok := item.(string)
		if !ok {
			return defaultValue, fmt.Errorf("non-string value at index %d in setting '%s'", i, key)
		}
		strSlice = append(strSlice, strVal)
	}
	return strSlice, nil
}

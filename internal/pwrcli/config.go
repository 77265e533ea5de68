package pwrcli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oremus-labs/ol-power-client/config"
	"github.com/oremus-labs/ol-power-client/internal/redisx"
	"github.com/oremus-labs/ol-power-client/internal/store"
)

// Config is the pwr configuration file: named backends and the one in use.
type Config struct {
	CurrentContext string             `yaml:"currentContext"`
	Contexts       map[string]Context `yaml:"contexts"`
}

// Context points the CLI at one hall backend and says where its session
// credential lives. Empty fields fall back to the environment.
type Context struct {
	Name            string          `yaml:"name"`
	Server          string          `yaml:"server"`
	Timeout         string          `yaml:"timeout,omitempty"`
	CredentialStore CredentialStore `yaml:"credentialStore,omitempty"`
}

// CredentialStore selects the backend for the four session keys.
type CredentialStore struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

var knownDrivers = map[string]bool{
	store.DriverMemory:   true,
	store.DriverFile:     true,
	store.DriverSQLite:   true,
	store.DriverPostgres: true,
	store.DriverRedis:    true,
}

// Validate rejects contexts the session could not be opened with.
func (c Context) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("context name is required")
	}
	if c.Server != "" {
		u, err := url.Parse(c.Server)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("context %q: server %q is not an absolute URL", c.Name, c.Server)
		}
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("context %q: invalid timeout %q", c.Name, c.Timeout)
		}
	}
	if d := c.CredentialStore.Driver; d != "" && !knownDrivers[strings.ToLower(d)] {
		return fmt.Errorf("context %q: %w %q", c.Name, store.ErrUnsupportedDriver, d)
	}
	return nil
}

// Apply overlays the context onto settings loaded from the environment.
func (c Context) Apply(env config.Config) (config.Config, error) {
	if c.Name != "" {
		if err := c.Validate(); err != nil {
			return env, err
		}
	}
	if c.Server != "" {
		env.BaseURL = c.Server
	}
	if c.Timeout != "" {
		d, _ := time.ParseDuration(c.Timeout)
		env.RequestTimeout = d
	}
	if c.CredentialStore.Driver != "" {
		env.CredentialDriver = strings.ToLower(c.CredentialStore.Driver)
		env.CredentialDSN = c.CredentialStore.DSN
		if env.CredentialDSN == "" {
			env.CredentialDSN = config.DefaultDSN(env.CredentialDriver, env.StatePath)
		}
	}
	return env, nil
}

// storeConfig maps client settings onto the credential backend selection.
func storeConfig(env config.Config) store.Config {
	return store.Config{
		Driver:    env.CredentialDriver,
		DSN:       env.CredentialDSN,
		KeyPrefix: env.CredentialKeyPrefix,
		Redis: redisx.Config{
			Addr:        env.RedisAddr,
			Username:    env.RedisUsername,
			Password:    env.RedisPassword,
			DB:          env.RedisDB,
			TLSEnabled:  env.RedisTLSEnabled,
			TLSInsecure: env.RedisTLSInsecure,
		},
	}
}

// Resolve picks the named context, or the current one when name is empty,
// and applies a server override. A file without contexts yields an empty
// Context so the environment decides everything.
func (cfg *Config) Resolve(name, server string) (Context, error) {
	var ctx Context
	if name == "" {
		name = cfg.CurrentContext
	}
	if name != "" {
		found, ok := cfg.Contexts[name]
		if !ok {
			return Context{}, fmt.Errorf("context %q not found; use 'pwr config set-context'", name)
		}
		ctx = found
	}
	if server != "" {
		ctx.Server = server
	}
	return ctx, nil
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Contexts: map[string]Context{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]Context{}
	}
	for name, ctx := range cfg.Contexts {
		if ctx.Name == "" {
			ctx.Name = name
			cfg.Contexts[name] = ctx
		}
	}
	return cfg, nil
}

// SaveConfig writes the file with owner-only permissions; contexts may name
// credential DSNs.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./pwr-config.yaml"
	}
	return filepath.Join(dir, "pwr", "config.yaml")
}

func setContext(cfg *Config, ctx Context, makeCurrent bool) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	if cfg.Contexts == nil {
		cfg.Contexts = map[string]Context{}
	}
	cfg.Contexts[ctx.Name] = ctx
	if cfg.CurrentContext == "" || makeCurrent {
		cfg.CurrentContext = ctx.Name
	}
	return nil
}

func ensureContextExists(cfg *Config, name string) error {
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	return nil
}

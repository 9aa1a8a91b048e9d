package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "CHEQUEGUARD"

// newViper builds a Viper instance with YAML file type, the CHEQUEGUARD_ env
// prefix and a "." → "_" key replacer, so that "database.host" resolves to
// CHEQUEGUARD_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)
	return v
}

// Load reads the YAML file at configPath, merges CHEQUEGUARD_* environment
// overrides, applies defaults and validates the result. An empty path is
// LoadFromEnv.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config from CHEQUEGUARD_* environment variables and
// defaults only.
//
//	CHEQUEGUARD_<SECTION>_<FIELD>   e.g.  CHEQUEGUARD_DATABASE_HOST
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	v        *viper.Viper
	mu       sync.Mutex
	current  *Config
	onChange func(*Config)
	onError  func(error)
}

// Watch loads configPath and starts watching it. onChange receives each new
// valid Config; a change that fails to parse or validate goes to onError,
// which may be nil, and the previous Config stays current.
func Watch(configPath string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	w, err := newWatcher(configPath, onChange, onError)
	if err != nil {
		return nil, err
	}
	w.v.OnConfigChange(w.handle)
	w.v.WatchConfig()
	return w, nil
}

func newWatcher(configPath string, onChange func(*Config), onError func(error)) (*Watcher, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	cfg, err := unmarshalAndFinalize(v)
	if err != nil {
		return nil, err
	}

	return &Watcher{v: v, current: cfg, onChange: onChange, onError: onError}, nil
}

func (w *Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := w.reload()
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

func (w *Watcher) reload() (*Config, error) {
	if err := w.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to re-read config file: %w", err)
	}
	return unmarshalAndFinalize(w.v)
}

// Current returns the last valid Config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// MustLoad is Load that panics on error, for use in main.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

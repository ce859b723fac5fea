// Package config provides configuration management for phantom.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Opts holds the proxy configuration. Fields load from a JSON file, with
// environment variables taking precedence, mirroring the CLI flags.
type Opts struct {
	// Server is the remote Bedrock server address, host:port. Required.
	Server string `json:"server" env:"PHANTOM_SERVER"`
	// Bind is the local address to listen on. Defaults to all interfaces.
	Bind string `json:"bind" env:"PHANTOM_BIND"`
	// BindPort is the proxy listening port. 0 selects an OS-assigned port.
	// phantom always listens on port 19132 as well, so both need to be open.
	BindPort uint16 `json:"bind_port" env:"PHANTOM_BIND_PORT"`
	// Timeout is the configured idle timeout in seconds. Accepted for
	// compatibility with the CLI surface; the proxy core never evicts
	// clients, so the value is currently unused.
	Timeout uint64 `json:"timeout" env:"PHANTOM_TIMEOUT"`
	// Debug enables debug logging.
	Debug bool `json:"debug" env:"PHANTOM_DEBUG"`
	// IPv6 enables experimental IPv6 support. No-op.
	IPv6 bool `json:"ipv6" env:"PHANTOM_IPV6"`

	// APIAddr enables the admin HTTP API when non-empty, e.g. "127.0.0.1:8080".
	APIAddr string `json:"api_addr" env:"PHANTOM_API_ADDR"`
	// APIKey authenticates admin API logins. Required when APIAddr is set.
	APIKey string `json:"api_key" env:"PHANTOM_API_KEY"`
	// DBPath enables SQLite session-history persistence when non-empty.
	DBPath string `json:"db_path" env:"PHANTOM_DB_PATH"`
	// MaxSessionRecords caps the persisted session history.
	MaxSessionRecords int `json:"max_session_records" env:"PHANTOM_MAX_SESSION_RECORDS"`
}

// Defaults returns an Opts with every optional field at its default.
func Defaults() Opts {
	return Opts{
		Bind:              "0.0.0.0",
		Timeout:           60,
		MaxSessionRecords: 100,
	}
}

// Validate checks that required fields are present and well-formed.
func (o *Opts) Validate() error {
	if o.Server == "" {
		return errors.New("server address is required")
	}
	if _, _, err := net.SplitHostPort(o.Server); err != nil {
		return fmt.Errorf("server address invalid: %w", err)
	}
	if o.Bind != "" {
		if ip := net.ParseIP(o.Bind); ip == nil {
			return fmt.Errorf("bind address invalid: %q", o.Bind)
		}
	}
	if o.APIAddr != "" {
		if _, _, err := net.SplitHostPort(o.APIAddr); err != nil {
			return fmt.Errorf("api_addr invalid: %w", err)
		}
		if o.APIKey == "" {
			return errors.New("api_key is required when api_addr is set")
		}
	}
	if o.MaxSessionRecords < 0 {
		return errors.New("max_session_records cannot be negative")
	}
	return nil
}

// FromEnv applies PHANTOM_* environment variables on top of o.
func (o *Opts) FromEnv() error {
	if err := env.Parse(o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// LoadFile reads opts from a JSON file, applying defaults for absent fields.
func LoadFile(path string) (Opts, error) {
	opts := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return opts, nil
}

// Manager holds the active Opts and supports live reload from file.
type Manager struct {
	mu       sync.RWMutex
	opts     Opts
	path     string
	onChange func(Opts)
}

// NewManager creates a manager around an already-loaded Opts. path may be
// empty when the configuration did not come from a file.
func NewManager(opts Opts, path string) *Manager {
	return &Manager{opts: opts, path: path}
}

// Opts returns a copy of the current configuration.
func (m *Manager) Opts() Opts {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// SetOnChange registers a callback invoked after each successful reload.
func (m *Manager) SetOnChange(callback func(Opts)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = callback
}

// Reload re-reads the config file, validates it, and swaps it in.
// No-op when the manager has no backing file.
func (m *Manager) Reload() error {
	if m.path == "" {
		return nil
	}

	opts, err := LoadFile(m.path)
	if err != nil {
		return err
	}
	if err := opts.FromEnv(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("rejected config reload: %w", err)
	}

	m.mu.Lock()
	m.opts = opts
	callback := m.onChange
	m.mu.Unlock()

	if callback != nil {
		callback(opts)
	}
	return nil
}

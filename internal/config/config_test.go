package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	opts := Defaults()
	if opts.Bind != "0.0.0.0" {
		t.Errorf("default bind = %q, want 0.0.0.0", opts.Bind)
	}
	if opts.BindPort != 0 {
		t.Errorf("default bind port = %d, want 0", opts.BindPort)
	}
	if opts.Timeout != 60 {
		t.Errorf("default timeout = %d, want 60", opts.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Opts)
		wantErr bool
	}{
		{"valid", func(o *Opts) { o.Server = "1.2.3.4:19132" }, false},
		{"missing server", func(o *Opts) {}, true},
		{"server without port", func(o *Opts) { o.Server = "1.2.3.4" }, true},
		{"bad bind", func(o *Opts) { o.Server = "1.2.3.4:19132"; o.Bind = "not-an-ip" }, true},
		{"api addr without key", func(o *Opts) {
			o.Server = "1.2.3.4:19132"
			o.APIAddr = "127.0.0.1:8080"
		}, true},
		{"api addr with key", func(o *Opts) {
			o.Server = "1.2.3.4:19132"
			o.APIAddr = "127.0.0.1:8080"
			o.APIKey = "secret"
		}, false},
		{"negative session records", func(o *Opts) {
			o.Server = "1.2.3.4:19132"
			o.MaxSessionRecords = -1
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Defaults()
			tt.mutate(&opts)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phantom.json")
	content := `{"server": "10.0.0.1:19132", "bind_port": 20000, "debug": true}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if opts.Server != "10.0.0.1:19132" {
		t.Errorf("server = %q", opts.Server)
	}
	if opts.BindPort != 20000 {
		t.Errorf("bind_port = %d", opts.BindPort)
	}
	if !opts.Debug {
		t.Error("debug should be true")
	}
	// Absent fields keep defaults.
	if opts.Bind != "0.0.0.0" {
		t.Errorf("bind = %q, want default", opts.Bind)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PHANTOM_SERVER", "192.168.1.5:19132")
	t.Setenv("PHANTOM_BIND_PORT", "19200")
	t.Setenv("PHANTOM_DEBUG", "true")

	opts := Defaults()
	opts.Server = "10.0.0.1:19132"
	if err := opts.FromEnv(); err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if opts.Server != "192.168.1.5:19132" {
		t.Errorf("env should override server, got %q", opts.Server)
	}
	if opts.BindPort != 19200 {
		t.Errorf("env should override bind_port, got %d", opts.BindPort)
	}
	if !opts.Debug {
		t.Error("env should set debug")
	}
}

func TestManagerReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phantom.json")
	if err := os.WriteFile(path, []byte(`{"server": "10.0.0.1:19132"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(opts, path)

	var seen []Opts
	mgr.SetOnChange(func(o Opts) { seen = append(seen, o) })

	if err := os.WriteFile(path, []byte(`{"server": "10.0.0.2:19132"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if got := mgr.Opts().Server; got != "10.0.0.2:19132" {
		t.Errorf("server after reload = %q", got)
	}
	if len(seen) != 1 {
		t.Fatalf("onChange fired %d times, want 1", len(seen))
	}
}

func TestManagerReloadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phantom.json")
	if err := os.WriteFile(path, []byte(`{"server": "10.0.0.1:19132"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(opts, path)

	if err := os.WriteFile(path, []byte(`{"server": ""}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Reload(); err == nil {
		t.Fatal("expected reload of invalid config to fail")
	}
	if got := mgr.Opts().Server; got != "10.0.0.1:19132" {
		t.Errorf("invalid reload should keep old config, got %q", got)
	}
}

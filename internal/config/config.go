// Package config writes and checks the TOML files the overlay binaries read.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/danmuck/overlayctl/internal/appearance"
)

var ErrUnknownKind = errors.New("config: unknown kind")

// Kinds lists the template kinds in a stable order.
var Kinds = []string{"overlayd", "client", "catalog"}

type daemonFile struct {
	ID                 string   `toml:"id"`
	ListenAddr         string   `toml:"listen_addr"`
	CORSOrigins        []string `toml:"cors_origins"`
	Worlds             []string `toml:"worlds"`
	Catalog            string   `toml:"catalog"`
	InterpolationTicks uint32   `toml:"interpolation_ticks"`
	DebugMarks         bool     `toml:"debug_marks"`
	AuthTokens         []string `toml:"auth_tokens"`
	Session            struct {
		HandshakeTimeout string `toml:"handshake_timeout"`
		ReadTimeout      string `toml:"read_timeout"`
		WriteTimeout     string `toml:"write_timeout"`
		PingInterval     string `toml:"ping_interval"`
		MaxMessageBytes  int64  `toml:"max_message_bytes"`
		SecurityMode     string `toml:"security_mode"`
		TLSEnabled       bool   `toml:"tls_enabled"`
		TLSCertFile      string `toml:"tls_cert_file"`
		TLSKeyFile       string `toml:"tls_key_file"`
	} `toml:"session"`
	Redis struct {
		Enabled   bool   `toml:"enabled"`
		Addr      string `toml:"addr"`
		Password  string `toml:"password"`
		DB        int    `toml:"db"`
		KeyPrefix string `toml:"key_prefix"`
		Channel   string `toml:"channel"`
	} `toml:"redis"`
}

type clientFile struct {
	Name    string `toml:"name"`
	Token   string `toml:"token"`
	Targets []struct {
		Name  string `toml:"name"`
		URL   string `toml:"url"`
		World string `toml:"world"`
	} `toml:"targets"`
}

// Validate parses path as a config of kind and checks the fields every
// binary needs. Unknown keys are errors.
func Validate(kind, path string) error {
	kind = normalizeKind(kind)
	if kind == "catalog" {
		_, err := appearance.LoadCatalog(path)
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch kind {
	case "overlayd":
		var cfg daemonFile
		if err := decodeStrict(data, &cfg); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return validateDaemon(cfg)
	case "client":
		var cfg clientFile
		if err := decodeStrict(data, &cfg); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		return validateClient(cfg)
	}
	return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

func decodeStrict(data []byte, out any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func validateDaemon(cfg daemonFile) error {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("overlayd config missing listen_addr")
	}
	if len(cfg.Worlds) == 0 {
		return fmt.Errorf("overlayd config missing worlds")
	}
	if cfg.Session.TLSEnabled && (cfg.Session.TLSCertFile == "" || cfg.Session.TLSKeyFile == "") {
		return fmt.Errorf("overlayd config tls_enabled needs tls_cert_file and tls_key_file")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return fmt.Errorf("overlayd config redis enabled without addr")
	}
	return nil
}

func validateClient(cfg clientFile) error {
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("client config has no targets")
	}
	for i, t := range cfg.Targets {
		if strings.TrimSpace(t.URL) == "" {
			return fmt.Errorf("targets[%d] missing url", i)
		}
		if strings.TrimSpace(t.World) == "" {
			return fmt.Errorf("targets[%d] missing world", i)
		}
	}
	return nil
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/overlayctl/internal/protocol/session"
	"github.com/danmuck/overlayctl/internal/server"
)

type fileConfig struct {
	ID                 string            `toml:"id"`
	ListenAddr         string            `toml:"listen_addr"`
	CORSOrigins        []string          `toml:"cors_origins"`
	Worlds             []string          `toml:"worlds"`
	Catalog            string            `toml:"catalog"`
	InterpolationTicks uint32            `toml:"interpolation_ticks"`
	DebugMarks         bool              `toml:"debug_marks"`
	AuthTokens         []string          `toml:"auth_tokens"`
	Session            sessionFileConfig `toml:"session"`
	Redis              redisFileConfig   `toml:"redis"`
}

type sessionFileConfig struct {
	HandshakeTimeout string `toml:"handshake_timeout"`
	ReadTimeout      string `toml:"read_timeout"`
	WriteTimeout     string `toml:"write_timeout"`
	PingInterval     string `toml:"ping_interval"`
	MaxMessageBytes  int64  `toml:"max_message_bytes"`
	SecurityMode     string `toml:"security_mode"`
	TLSEnabled       bool   `toml:"tls_enabled"`
	TLSCertFile      string `toml:"tls_cert_file"`
	TLSKeyFile       string `toml:"tls_key_file"`
}

type redisFileConfig struct {
	Enabled   bool   `toml:"enabled"`
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
	Channel   string `toml:"channel"`
}

// loadServiceConfig overlays the keys present in path onto the defaults.
func loadServiceConfig(path string) (server.ServiceConfig, error) {
	cfg := server.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return server.ServiceConfig{}, fmt.Errorf("load overlayd config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return server.ServiceConfig{}, fmt.Errorf("load overlayd config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("id") {
		if id := strings.TrimSpace(raw.ID); id != "" {
			cfg.ServiceID = id
		}
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("worlds") {
		cfg.Worlds = normalizeList(raw.Worlds)
	}
	if meta.IsDefined("catalog") {
		cfg.CatalogPath = strings.TrimSpace(raw.Catalog)
	}
	if meta.IsDefined("interpolation_ticks") {
		cfg.Interpolation = raw.InterpolationTicks
	}
	if meta.IsDefined("debug_marks") {
		cfg.DebugMarks = raw.DebugMarks
	}
	if meta.IsDefined("auth_tokens") {
		cfg.AuthTokens = normalizeList(raw.AuthTokens)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"handshake_timeout", raw.Session.HandshakeTimeout, &cfg.Session.HandshakeTimeout},
		{"read_timeout", raw.Session.ReadTimeout, &cfg.Session.ReadTimeout},
		{"write_timeout", raw.Session.WriteTimeout, &cfg.Session.WriteTimeout},
		{"ping_interval", raw.Session.PingInterval, &cfg.Session.PingInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined("session", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return server.ServiceConfig{}, fmt.Errorf("parse session.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("session", "max_message_bytes") {
		cfg.Session.MaxMessageBytes = raw.Session.MaxMessageBytes
	}
	if meta.IsDefined("session", "security_mode") {
		cfg.Session.SecurityMode = session.SecurityMode(strings.TrimSpace(raw.Session.SecurityMode))
	}
	if meta.IsDefined("session", "tls_enabled") {
		cfg.Session.TLS.Enabled = raw.Session.TLSEnabled
	}
	if meta.IsDefined("session", "tls_cert_file") {
		cfg.Session.TLS.CertFile = strings.TrimSpace(raw.Session.TLSCertFile)
	}
	if meta.IsDefined("session", "tls_key_file") {
		cfg.Session.TLS.KeyFile = strings.TrimSpace(raw.Session.TLSKeyFile)
	}

	if meta.IsDefined("redis", "enabled") {
		cfg.Redis.Enabled = raw.Redis.Enabled
	}
	if meta.IsDefined("redis", "addr") {
		cfg.Redis.Addr = strings.TrimSpace(raw.Redis.Addr)
	}
	if meta.IsDefined("redis", "password") {
		cfg.Redis.Password = raw.Redis.Password
	}
	if meta.IsDefined("redis", "db") {
		cfg.Redis.DB = raw.Redis.DB
	}
	if meta.IsDefined("redis", "key_prefix") {
		cfg.Redis.KeyPrefix = raw.Redis.KeyPrefix
	}
	if meta.IsDefined("redis", "channel") {
		cfg.Redis.Channel = strings.TrimSpace(raw.Redis.Channel)
	}

	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

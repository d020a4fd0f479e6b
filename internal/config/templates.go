package config

import (
	"fmt"
	"os"
)

func Template(kind string) (string, error) {
	switch normalizeKind(kind) {
	case "overlayd":
		return daemonTemplate, nil
	case "client":
		return clientTemplate, nil
	case "catalog":
		return catalogTemplate, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const daemonTemplate = `id = "overlayd"
listen_addr = ":7480"
cors_origins = ["http://localhost:3000"]
worlds = ["overworld", "nether", "the_end"]
interpolation_ticks = 10
debug_marks = false
auth_tokens = []

[session]
handshake_timeout = "5s"
read_timeout = "30s"
write_timeout = "5s"
ping_interval = "10s"
max_message_bytes = 65536
security_mode = "development"
tls_enabled = false

[redis]
enabled = false
addr = "127.0.0.1:6379"
key_prefix = "overlay:"
channel = "overlay:selection"
`

const clientTemplate = `name = "builder"
token = ""

[[targets]]
name = "local"
url = "ws://127.0.0.1:7480/ws"
world = "overworld"
`

const catalogTemplate = `[[appearance]]
tag = "lime_concrete"
solid = true

[[appearance]]
tag = "torch"
solid = false
note = "not a full block"
`

package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "runtime":
		return runtimeTemplate, nil
	case "profiles":
		return profilesTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
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

const runtimeTemplate = `# framectl runtime config
stream = "serial0"
input = "stdin"
profile = "line"
chunk_size = 256
log_payloads = false

# tcp inputs only
# reconnect = true
# reconnect_max_attempts = 0

# metrics_addr = ":9310"
# cors_origins = ["http://localhost:3000"]

# nats_url = "nats://127.0.0.1:4222"
# nats_subject = "frames.serial0"

# redis_addr = "127.0.0.1:6379"
# redis_stream = "frames:serial0"
# redis_max_len = 10000
`

const profilesTemplate = `[[profiles]]
name = "sensor"
start = "<"
end = ">"
buffer_size = 64

[[profiles]]
name = "modbus-ascii"
start = ":"
end_hex = "0d 0a"
buffer_size = 520
`

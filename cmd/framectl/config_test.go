package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/danmuck/packetizer/internal/stream"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRuntimeConfigExample(t *testing.T) {
	cfg, err := loadRuntimeConfig("ex.config.toml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Stream != "gps0" {
		t.Fatalf("unexpected stream: %q", cfg.Stream)
	}
	if cfg.Input != "tcp:127.0.0.1:5023" {
		t.Fatalf("unexpected input: %q", cfg.Input)
	}
	if cfg.Profile != "gt06" || cfg.BufferSize != 512 || cfg.ChunkSize != 128 {
		t.Fatalf("unexpected framing config: %+v", cfg)
	}
	if !cfg.LogPayloads {
		t.Fatalf("expected payload logging enabled")
	}
	if cfg.StartSet || cfg.EndSet {
		t.Fatalf("expected profile delimiters without overrides")
	}
	if cfg.MetricsAddr != ":9310" {
		t.Fatalf("unexpected metrics addr: %q", cfg.MetricsAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CorsOrigins)
	}
	if cfg.NATSURL != "" || cfg.NATSSubject != "frames.gps0" {
		t.Fatalf("unexpected nats config: url=%q subject=%q", cfg.NATSURL, cfg.NATSSubject)
	}
	if !cfg.Reconnect || cfg.ReconnectMaxAttempts != 10 {
		t.Fatalf("unexpected reconnect config: %v/%d", cfg.Reconnect, cfg.ReconnectMaxAttempts)
	}
	if cfg.RedisStream != "frames:gps0" || cfg.RedisMaxLen != 5000 {
		t.Fatalf("unexpected redis config: stream=%q max_len=%d", cfg.RedisStream, cfg.RedisMaxLen)
	}

	f, err := buildFramer(cfg)
	if err != nil {
		t.Fatalf("build framer: %v", err)
	}
	if f.BufferSize() != 512 {
		t.Fatalf("unexpected buffer size: %d", f.BufferSize())
	}
	if !bytes.Equal(f.StartCondition(), []byte{0x78, 0x78}) || !bytes.Equal(f.EndCondition(), []byte{0x0d, 0x0a}) {
		t.Fatalf("unexpected delimiters: %x %x", f.StartCondition(), f.EndCondition())
	}
}

func TestLoadRuntimeConfigDefaults(t *testing.T) {
	path := writeConfig(t, "config.toml", `stream = "s1"`)
	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Input != "stdin" || cfg.Profile != "line" || cfg.ChunkSize != stream.DefaultChunkSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	f, err := buildFramer(cfg)
	if err != nil {
		t.Fatalf("build framer: %v", err)
	}
	if f.HasStartCondition() || !bytes.Equal(f.EndCondition(), []byte("\r\n")) {
		t.Fatalf("unexpected line profile framer")
	}
}

func TestDelimiterOverrides(t *testing.T) {
	path := writeConfig(t, "config.toml", `
profile = "nmea"
start = ""
end_hex = "0a"
`)
	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	f, err := buildFramer(cfg)
	if err != nil {
		t.Fatalf("build framer: %v", err)
	}
	if f.HasStartCondition() {
		t.Fatalf("expected empty start override to clear profile start")
	}
	if !bytes.Equal(f.EndCondition(), []byte{0x0a}) {
		t.Fatalf("unexpected end: %x", f.EndCondition())
	}
	if f.BufferSize() != 96 {
		t.Fatalf("expected nmea buffer size, got %d", f.BufferSize())
	}
}

func TestProfilesFileOverridesBuiltin(t *testing.T) {
	profiles := writeConfig(t, "profiles.toml", `
[[profiles]]
name = "line"
end = "\n"
buffer_size = 16
`)
	cfg := defaultRuntimeConfig()
	cfg.ProfilesFile = profiles
	f, err := buildFramer(cfg)
	if err != nil {
		t.Fatalf("build framer: %v", err)
	}
	if !bytes.Equal(f.EndCondition(), []byte("\n")) || f.BufferSize() != 16 {
		t.Fatalf("profiles file not applied: end=%q size=%d", f.EndCondition(), f.BufferSize())
	}
}

func TestNoProfileUsesDefaultBuffer(t *testing.T) {
	cfg := defaultRuntimeConfig()
	cfg.Profile = ""
	f, err := buildFramer(cfg)
	if err != nil {
		t.Fatalf("build framer: %v", err)
	}
	if f.BufferSize() != framer.DefaultBufferSize || f.HasStartCondition() || f.HasEndCondition() {
		t.Fatalf("unexpected framer without profile: size=%d", f.BufferSize())
	}
}

func TestLoadRuntimeConfigErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":     `bogus = 1`,
		"bad hex":         `start_hex = "xx"`,
		"conflict":        "end = \">\"\nend_hex = \"3e\"",
		"bad input":       `input = "serial:/dev/ttyUSB0"`,
		"negative buffer": `buffer_size = -1`,
		"empty stream":    `stream = " "`,
		"bad toml":        `stream = `,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := loadRuntimeConfig(writeConfig(t, "config.toml", content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBuildFramerUnknownProfile(t *testing.T) {
	cfg := defaultRuntimeConfig()
	cfg.Profile = "missing"
	if _, err := buildFramer(cfg); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}

func TestParseInput(t *testing.T) {
	cases := []struct {
		spec   string
		kind   string
		target string
	}{
		{spec: "", kind: inputStdin},
		{spec: "-", kind: inputStdin},
		{spec: "stdin", kind: inputStdin},
		{spec: "file:/tmp/capture.bin", kind: inputFile, target: "/tmp/capture.bin"},
		{spec: "tcp:127.0.0.1:5023", kind: inputTCP, target: "127.0.0.1:5023"},
	}
	for _, tc := range cases {
		kind, target, err := parseInput(tc.spec)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.spec, err)
		}
		if kind != tc.kind || target != tc.target {
			t.Fatalf("parse %q: got=%s,%s want=%s,%s", tc.spec, kind, target, tc.kind, tc.target)
		}
	}
	for _, bad := range []string{"file:", "udp:1.2.3.4:5", "nocolon"} {
		if _, _, err := parseInput(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

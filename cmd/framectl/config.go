package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/packetizer/internal/config"
	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/danmuck/packetizer/internal/stream"
)

type runtimeConfig struct {
	Stream       string
	Input        string
	Profile      string
	ProfilesFile string
	BufferSize   int
	ChunkSize    int
	LogPayloads  bool

	// Reconnect redials tcp inputs with backoff after a disconnect.
	Reconnect            bool
	ReconnectMaxAttempts int

	// Start/End override the profile delimiters when set, even to empty.
	Start    []byte
	StartSet bool
	End      []byte
	EndSet   bool

	MetricsAddr string
	CorsOrigins []string

	NATSURL     string
	NATSSubject string

	RedisAddr   string
	RedisStream string
	RedisMaxLen int64
}

type fileConfig struct {
	Stream       string   `toml:"stream"`
	Input        string   `toml:"input"`
	Profile      string   `toml:"profile"`
	ProfilesFile string   `toml:"profiles_file"`
	BufferSize   int      `toml:"buffer_size"`
	ChunkSize    int      `toml:"chunk_size"`
	LogPayloads  bool     `toml:"log_payloads"`
	Reconnect    bool     `toml:"reconnect"`
	MaxAttempts  int      `toml:"reconnect_max_attempts"`
	Start        string   `toml:"start"`
	StartHex     string   `toml:"start_hex"`
	End          string   `toml:"end"`
	EndHex       string   `toml:"end_hex"`
	MetricsAddr  string   `toml:"metrics_addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	NATSURL      string   `toml:"nats_url"`
	NATSSubject  string   `toml:"nats_subject"`
	RedisAddr    string   `toml:"redis_addr"`
	RedisStream  string   `toml:"redis_stream"`
	RedisMaxLen  int64    `toml:"redis_max_len"`
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Stream:    "stream0",
		Input:     "stdin",
		Profile:   "line",
		ChunkSize: stream.DefaultChunkSize,
	}
}

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load framectl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return runtimeConfig{}, fmt.Errorf("load framectl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("stream") {
		cfg.Stream = strings.TrimSpace(raw.Stream)
	}
	if meta.IsDefined("input") {
		cfg.Input = strings.TrimSpace(raw.Input)
	}
	if meta.IsDefined("profile") {
		cfg.Profile = strings.TrimSpace(raw.Profile)
	}
	if meta.IsDefined("profiles_file") {
		cfg.ProfilesFile = strings.TrimSpace(raw.ProfilesFile)
	}
	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}
	if meta.IsDefined("chunk_size") {
		cfg.ChunkSize = raw.ChunkSize
	}
	if meta.IsDefined("log_payloads") {
		cfg.LogPayloads = raw.LogPayloads
	}
	if meta.IsDefined("reconnect") {
		cfg.Reconnect = raw.Reconnect
	}
	if meta.IsDefined("reconnect_max_attempts") {
		cfg.ReconnectMaxAttempts = raw.MaxAttempts
	}

	if meta.IsDefined("start") || meta.IsDefined("start_hex") {
		cfg.Start, err = config.ParsePattern(raw.Start, raw.StartHex)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse start: %w", err)
		}
		cfg.StartSet = true
	}
	if meta.IsDefined("end") || meta.IsDefined("end_hex") {
		cfg.End, err = config.ParsePattern(raw.End, raw.EndHex)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse end: %w", err)
		}
		cfg.EndSet = true
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("nats_url") {
		cfg.NATSURL = strings.TrimSpace(raw.NATSURL)
	}
	if meta.IsDefined("nats_subject") {
		cfg.NATSSubject = strings.TrimSpace(raw.NATSSubject)
	}
	if meta.IsDefined("redis_addr") {
		cfg.RedisAddr = strings.TrimSpace(raw.RedisAddr)
	}
	if meta.IsDefined("redis_stream") {
		cfg.RedisStream = strings.TrimSpace(raw.RedisStream)
	}
	if meta.IsDefined("redis_max_len") {
		cfg.RedisMaxLen = raw.RedisMaxLen
	}

	if err := validateRuntimeConfig(cfg); err != nil {
		return runtimeConfig{}, err
	}
	return cfg, nil
}

func validateRuntimeConfig(cfg runtimeConfig) error {
	if strings.TrimSpace(cfg.Stream) == "" {
		return fmt.Errorf("framectl config missing stream")
	}
	if cfg.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative")
	}
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if cfg.ReconnectMaxAttempts < 0 {
		return fmt.Errorf("reconnect_max_attempts must not be negative")
	}
	if cfg.RedisMaxLen < 0 {
		return fmt.Errorf("redis_max_len must not be negative")
	}
	if _, _, err := parseInput(cfg.Input); err != nil {
		return err
	}
	return nil
}

// resolveProfile picks the configured profile from the builtin catalog plus
// profiles_file and applies explicit delimiter overrides.
func resolveProfile(cfg runtimeConfig) (start, end []byte, size int, err error) {
	profiles := config.BuiltinProfiles()
	if cfg.ProfilesFile != "" {
		loaded, err := config.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return nil, nil, 0, err
		}
		profiles = config.MergeProfiles(profiles, loaded)
	}

	var p config.Profile
	if cfg.Profile != "" {
		var ok bool
		p, ok = config.FindProfile(profiles, cfg.Profile)
		if !ok {
			return nil, nil, 0, fmt.Errorf("unknown profile %q", cfg.Profile)
		}
	}
	start, end, err = p.Delimiters()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	if cfg.StartSet {
		start = cfg.Start
	}
	if cfg.EndSet {
		end = cfg.End
	}

	size = framer.DefaultBufferSize
	if p.BufferSize > 0 {
		size = p.BufferSize
	}
	if cfg.BufferSize > 0 {
		size = cfg.BufferSize
	}
	return start, end, size, nil
}

func buildFramer(cfg runtimeConfig) (*framer.Framer, error) {
	start, end, size, err := resolveProfile(cfg)
	if err != nil {
		return nil, err
	}
	f, err := framer.New(size)
	if err != nil {
		return nil, fmt.Errorf("buffer_size %d: %w", size, err)
	}
	f.SetStartCondition(start)
	f.SetEndCondition(end)
	return f, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

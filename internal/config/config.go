package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrPatternConflict = errors.New("config: both text and hex pattern set")

// Profile is a named framing setup for a device protocol.
type Profile struct {
	Name       string `toml:"name"`
	Start      string `toml:"start"`
	End        string `toml:"end"`
	StartHex   string `toml:"start_hex"`
	EndHex     string `toml:"end_hex"`
	BufferSize int    `toml:"buffer_size"`
}

type ProfileFile struct {
	Profiles []Profile `toml:"profiles"`
}

// BuiltinProfiles returns the profiles shipped with the binary.
func BuiltinProfiles() []Profile {
	return []Profile{
		{Name: "line", End: "\r\n", BufferSize: 256},
		{Name: "nmea", Start: "$", End: "\r\n", BufferSize: 96},
		{Name: "wialon", Start: "#", End: "\r\n", BufferSize: 512},
		{Name: "gt06", StartHex: "7878", EndHex: "0d0a", BufferSize: 256},
		{Name: "jt808", StartHex: "7e", EndHex: "7e", BufferSize: 1024},
		{Name: "packetizer", Start: "start", End: "\r\n", BufferSize: 128},
	}
}

// LoadProfiles reads a [[profiles]] file and validates every entry.
func LoadProfiles(path string) ([]Profile, error) {
	var file ProfileFile
	if err := loadToml(path, &file); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(file.Profiles))
	for i, p := range file.Profiles {
		if err := ValidateProfile(p); err != nil {
			return nil, fmt.Errorf("profile[%d] invalid: %w", i, err)
		}
		key := profileKey(p.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("profile[%d] invalid: duplicate name %q", i, p.Name)
		}
		seen[key] = struct{}{}
	}
	return file.Profiles, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateProfile(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if p.BufferSize < 0 {
		return fmt.Errorf("buffer_size must not be negative")
	}
	_, end, err := p.Delimiters()
	if err != nil {
		return err
	}
	if p.BufferSize > 0 && len(end) > 0 && p.BufferSize <= len(end) {
		return fmt.Errorf("buffer_size %d cannot hold a payload before a %d byte end", p.BufferSize, len(end))
	}
	return nil
}

// Delimiters decodes the start and end patterns.
func (p Profile) Delimiters() (start, end []byte, err error) {
	start, err = ParsePattern(p.Start, p.StartHex)
	if err != nil {
		return nil, nil, fmt.Errorf("start: %w", err)
	}
	end, err = ParsePattern(p.End, p.EndHex)
	if err != nil {
		return nil, nil, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// ParsePattern returns text as bytes, or hexText decoded. Spaces, colons and
// dashes in hexText are ignored so "0d 0a" and "0d:0a" both work.
func ParsePattern(text, hexText string) ([]byte, error) {
	if text != "" && hexText != "" {
		return nil, ErrPatternConflict
	}
	if hexText == "" {
		if text == "" {
			return nil, nil
		}
		return []byte(text), nil
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ':', '-':
			return -1
		}
		return r
	}, strings.TrimPrefix(strings.TrimSpace(hexText), "0x"))
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("config: invalid hex pattern %q: %w", hexText, err)
	}
	return b, nil
}

// MergeProfiles overlays overrides onto base by name. Overrides replace the
// base entry in place; new names are appended in order.
func MergeProfiles(base, overrides []Profile) []Profile {
	out := make([]Profile, len(base), len(base)+len(overrides))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[profileKey(p.Name)] = i
	}
	for _, p := range overrides {
		key := profileKey(p.Name)
		if i, ok := index[key]; ok {
			out[i] = p
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func FindProfile(profiles []Profile, name string) (Profile, bool) {
	key := profileKey(name)
	for _, p := range profiles {
		if profileKey(p.Name) == key {
			return p, true
		}
	}
	return Profile{}, false
}

func profileKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

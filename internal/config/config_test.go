package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestBuiltinProfilesAreValid(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		if err := ValidateProfile(p); err != nil {
			t.Fatalf("builtin %q invalid: %v", p.Name, err)
		}
	}
	gt06, ok := FindProfile(BuiltinProfiles(), "GT06")
	if !ok {
		t.Fatalf("expected gt06 builtin")
	}
	start, end, err := gt06.Delimiters()
	if err != nil {
		t.Fatalf("delimiters: %v", err)
	}
	if !bytes.Equal(start, []byte{0x78, 0x78}) || !bytes.Equal(end, []byte{0x0d, 0x0a}) {
		t.Fatalf("unexpected gt06 delimiters: %x %x", start, end)
	}
}

func TestLoadProfiles(t *testing.T) {
	path := writeFile(t, `
[[profiles]]
name = "sensor"
start = "<"
end = ">"
buffer_size = 64

[[profiles]]
name = "crlf"
end_hex = "0d:0a"
`)
	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("unexpected profile count: %d", len(profiles))
	}
	if profiles[0].Name != "sensor" || profiles[0].BufferSize != 64 {
		t.Fatalf("unexpected first profile: %+v", profiles[0])
	}
	_, end, err := profiles[1].Delimiters()
	if err != nil || !bytes.Equal(end, []byte("\r\n")) {
		t.Fatalf("unexpected crlf end: %q err=%v", end, err)
	}
}

func TestLoadProfilesTemplate(t *testing.T) {
	tmpl, err := Template("profiles")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if _, err := LoadProfiles(writeFile(t, tmpl)); err != nil {
		t.Fatalf("profiles template invalid: %v", err)
	}
}

func TestLoadProfilesRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name": `
[[profiles]]
end = ">"
`,
		"conflicting end": `
[[profiles]]
name = "x"
end = ">"
end_hex = "3e"
`,
		"bad hex": `
[[profiles]]
name = "x"
end_hex = "zz"
`,
		"buffer too small": `
[[profiles]]
name = "x"
end = "\r\n"
buffer_size = 2
`,
		"duplicate": `
[[profiles]]
name = "x"
[[profiles]]
name = "X"
`,
		"bad toml": `[[profiles]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadProfiles(writeFile(t, content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestParsePattern(t *testing.T) {
	cases := []struct {
		text string
		hex  string
		want []byte
	}{
		{text: "", hex: "", want: nil},
		{text: "start", want: []byte("start")},
		{hex: "0x7e", want: []byte{0x7e}},
		{hex: "0d 0a", want: []byte{0x0d, 0x0a}},
		{hex: "C0-DB", want: []byte{0xc0, 0xdb}},
	}
	for _, tc := range cases {
		got, err := ParsePattern(tc.text, tc.hex)
		if err != nil {
			t.Fatalf("parse %q/%q: %v", tc.text, tc.hex, err)
		}
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("parse %q/%q: got=%x want=%x", tc.text, tc.hex, got, tc.want)
		}
	}
	if _, err := ParsePattern("a", "61"); !errors.Is(err, ErrPatternConflict) {
		t.Fatalf("expected ErrPatternConflict, got %v", err)
	}
}

func TestMergeProfiles(t *testing.T) {
	base := []Profile{{Name: "line", End: "\n"}, {Name: "nmea", Start: "$", End: "\r\n"}}
	merged := MergeProfiles(base, []Profile{{Name: "LINE", End: "\r\n"}, {Name: "extra", End: ";"}})
	if len(merged) != 3 {
		t.Fatalf("unexpected merged count: %d", len(merged))
	}
	if merged[0].End != "\r\n" || merged[2].Name != "extra" {
		t.Fatalf("unexpected merge result: %+v", merged)
	}
	if base[0].End != "\n" {
		t.Fatalf("merge mutated base")
	}
	if _, ok := FindProfile(merged, "missing"); ok {
		t.Fatalf("unexpected profile found")
	}
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, "runtime", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "runtime", false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, "runtime", true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
	if _, err := Template("daemon"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

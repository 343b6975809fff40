package match

import (
	"bytes"
	"testing"
)

func feedAll(m *Matcher, in []byte) []int {
	hits := make([]int, 0)
	for i, b := range in {
		if m.Feed(b) {
			hits = append(hits, i)
		}
	}
	return hits
}

func TestMatcherCompletesOnLastPatternByte(t *testing.T) {
	m := New([]byte{13, 10})
	hits := feedAll(&m, []byte("ab\r\ncd\r\n"))
	if len(hits) != 2 || hits[0] != 3 || hits[1] != 7 {
		t.Fatalf("unexpected hits: %v", hits)
	}
	if m.Cursor() != 0 {
		t.Fatalf("expected cursor reset after completion, got %d", m.Cursor())
	}
}

func TestMatcherRestartsOnBrokenPrefix(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		input   string
		hits    []int
	}{
		{name: "repeat first byte", pattern: "ab", input: "aab", hits: []int{2}},
		{name: "crlf after cr", pattern: "\r\n", input: "\r\r\n", hits: []int{2}},
		{name: "start word", pattern: "start", input: "ststart", hits: []int{6}},
		{name: "no backtrack past first byte", pattern: "aab", input: "aaab", hits: []int{}},
		{name: "single byte", pattern: "~", input: "~a~~", hits: []int{0, 2, 3}},
		{name: "no match", pattern: "xyz", input: "xyxyxy", hits: []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := New([]byte(tc.pattern))
			hits := feedAll(&m, []byte(tc.input))
			if len(hits) != len(tc.hits) {
				t.Fatalf("unexpected hits: got=%v want=%v", hits, tc.hits)
			}
			for i := range hits {
				if hits[i] != tc.hits[i] {
					t.Fatalf("unexpected hits: got=%v want=%v", hits, tc.hits)
				}
			}
		})
	}
}

func TestMatcherDisabled(t *testing.T) {
	var m Matcher
	if m.Enabled() || m.Len() != 0 {
		t.Fatalf("zero matcher should be disabled")
	}
	if hits := feedAll(&m, []byte("anything")); len(hits) != 0 {
		t.Fatalf("disabled matcher completed: %v", hits)
	}
	if m.Pattern() != nil {
		t.Fatalf("expected nil pattern")
	}

	m.Set([]byte("x"))
	m.Set(nil)
	if m.Enabled() {
		t.Fatalf("expected empty Set to disable matcher")
	}
}

func TestMatcherSetCopiesAndResets(t *testing.T) {
	p := []byte("end")
	m := New(p)
	m.Feed('e')
	m.Feed('n')
	if m.Cursor() != 2 {
		t.Fatalf("unexpected cursor: %d", m.Cursor())
	}
	p[0] = 'X'
	if !bytes.Equal(m.Pattern(), []byte("end")) {
		t.Fatalf("pattern aliased caller slice: %q", m.Pattern())
	}

	m.Set([]byte("end"))
	if m.Cursor() != 0 {
		t.Fatalf("expected cursor reset on Set, got %d", m.Cursor())
	}

	out := m.Pattern()
	out[0] = 'Z'
	if !bytes.Equal(m.Pattern(), []byte("end")) {
		t.Fatalf("Pattern returned internal storage")
	}
}

package match

// Matcher counts consecutive bytes of a fixed pattern seen in a byte stream.
//
// A byte that breaks a partial match is re-tested against the first pattern
// byte, so "aab" fed into a "ab" matcher completes on the final byte. The
// matcher does not backtrack further than that: a partial match is either
// extended, restarted at position one, or dropped.
//
// The zero value is a disabled matcher that never completes.
type Matcher struct {
	pattern []byte
	cursor  int
}

// New returns a matcher for a copy of pattern.
func New(pattern []byte) Matcher {
	var m Matcher
	m.Set(pattern)
	return m
}

// Set replaces the pattern with a copy of p and resets the cursor.
// An empty p disables the matcher.
func (m *Matcher) Set(p []byte) {
	if len(p) == 0 {
		m.pattern = m.pattern[:0]
	} else {
		m.pattern = append(m.pattern[:0], p...)
	}
	m.cursor = 0
}

// Feed advances the matcher by one byte and reports whether it completed the
// pattern. The cursor returns to zero on completion.
func (m *Matcher) Feed(b byte) bool {
	if len(m.pattern) == 0 {
		return false
	}
	if b != m.pattern[m.cursor] {
		m.cursor = 0
	}
	if b == m.pattern[m.cursor] {
		m.cursor++
		if m.cursor == len(m.pattern) {
			m.cursor = 0
			return true
		}
	}
	return false
}

func (m *Matcher) Reset() {
	m.cursor = 0
}

func (m *Matcher) Enabled() bool {
	return len(m.pattern) > 0
}

// Len is the pattern length, zero when disabled.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Cursor is the number of pattern bytes matched so far.
func (m *Matcher) Cursor() int {
	return m.cursor
}

// Pattern returns a copy of the configured pattern, nil when disabled.
func (m *Matcher) Pattern() []byte {
	if len(m.pattern) == 0 {
		return nil
	}
	out := make([]byte, len(m.pattern))
	copy(out, m.pattern)
	return out
}

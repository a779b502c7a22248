// Package expiry recovers an expiry date from OCR text with an ordered list
// of pattern rules. The first rule that matches anywhere in the text wins.
package expiry

// NotDetected is returned when no rule matches. It is a normal outcome, not an error.
const NotDetected = "Not detected"

// Match is a successful extraction.
type Match struct {
	Date string `json:"date"`
	Rule string `json:"rule"`
}

// Matcher applies rules in order and stops at the first hit.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a Matcher over rules. With no rules it uses DefaultRules.
func NewMatcher(rules ...Rule) *Matcher {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

var defaultMatcher = NewMatcher()

// Find returns the first rule match in text. The date is sliced from text
// itself, so it is always a verbatim substring of the input.
func (m *Matcher) Find(text string) (Match, bool) {
	flat := flatten(text)
	for _, rule := range m.rules {
		start, end, ok := rule.find(flat)
		if !ok {
			continue
		}
		return Match{Date: text[start:end], Rule: rule.Name}, true
	}
	return Match{}, false
}

// Extract returns the expiry date found in text, or NotDetected.
func (m *Matcher) Extract(text string) string {
	match, ok := m.Find(text)
	if !ok {
		return NotDetected
	}
	return match.Date
}

// Extract runs the default rules over text.
func Extract(text string) string {
	return defaultMatcher.Extract(text)
}

// flatten replaces line breaks with spaces so a label and its value on
// adjacent lines still match. The result has the same byte offsets as text.
func flatten(text string) string {
	b := []byte(text)
	for i, c := range b {
		if c == '\n' || c == '\r' {
			b[i] = ' '
		}
	}
	return string(b)
}

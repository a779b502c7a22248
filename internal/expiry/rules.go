package expiry

import "regexp"

// Building blocks for the rule patterns. Every rule wraps the value it
// extracts in a group named "date".
const (
	month   = `(?:january|february|march|april|may|june|july|august|september|october|november|december)`
	ordinal = `(?:st|nd|rd|th)?`

	numericDate = `\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`
	isoDate     = `\b\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}\b`
	longOfDate  = `\b\d{1,2}` + ordinal + `\s+of\s+` + month + `[,\s]*\d{4}\b`
	longDate    = `\b\d{1,2}` + ordinal + `\s*` + month + `[,\s]*\d{4}\b`
	monthFirst  = `\b` + month + `\s*\d{1,2}` + ordinal + `,?\s*\d{4}\b`

	label = `(?:valid\s*(?:till|upto|up\s+to|to)|expiry\s*date|expiration\s*date|expiry|expires|validity)`

	// labelReach bounds how far after a label the date may start.
	labelReach = `.{0,25}?`
)

// Rule is one entry of the ordered extraction list. Pattern decides whether
// the rule applies and its "date" group is the extracted value.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// NewRule compiles a case-insensitive rule. It panics if the pattern has no
// "date" group, since such a rule could never report a value.
func NewRule(name, pattern string) Rule {
	re := regexp.MustCompile(`(?i)` + pattern)
	if re.SubexpIndex("date") < 0 {
		panic("expiry: rule " + name + " has no date group")
	}
	return Rule{Name: name, Pattern: re}
}

// find returns the byte span of the date group in text.
func (r Rule) find(text string) (start, end int, ok bool) {
	loc := r.Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	i := r.Pattern.SubexpIndex("date")
	start, end = loc[2*i], loc[2*i+1]
	if start < 0 || start == end {
		return 0, 0, false
	}
	return start, end, true
}

// DefaultRules returns the canonical rule order: a validity range yields its
// end date, then label-anchored dates, then unlabeled long forms, then
// unlabeled numeric forms.
func DefaultRules() []Rule {
	return []Rule{
		NewRule("range", numericDate+`\s*(?:to|till|-)\s*(?P<date>`+numericDate+`)`),
		NewRule("labeled", label+labelReach+`(?P<date>`+longOfDate+`|`+longDate+`|`+monthFirst+`|`+numericDate+`|`+isoDate+`)`),
		NewRule("long-form-of", `(?P<date>`+longOfDate+`)`),
		NewRule("long-form", `(?P<date>`+longDate+`)`),
		NewRule("month-first", `(?P<date>`+monthFirst+`)`),
		NewRule("numeric", `(?P<date>`+numericDate+`)`),
		NewRule("iso", `(?P<date>`+isoDate+`)`),
	}
}

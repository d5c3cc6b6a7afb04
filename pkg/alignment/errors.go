package alignment

import "fmt"

// ParseError reports a malformed alignment parameter record.
type ParseError struct {
	Line   int // 1-based; zero when parsing a single record
	Text   string
	Reason string
}

func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("alignment: line %d %q: %s", e.Line, e.Text, e.Reason)
	}
	return fmt.Sprintf("alignment: %q: %s", e.Text, e.Reason)
}

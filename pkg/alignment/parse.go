package alignment

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultScale is the sign convention applied to millepede output.
const DefaultScale = -1.0

// Parser reads parameter records of the form "<id> <value> <presigma>".
// Every parsed value is multiplied by Scale; presigma is stored unscaled.
type Parser struct {
	Scale float64
	// Lenient accepts records with trailing columns beyond the third.
	Lenient bool
}

// NewParser returns a strict parser applying scale.
func NewParser(scale float64) *Parser {
	return &Parser{Scale: scale}
}

// ParseLine parses one record.
func (p *Parser) ParseLine(line string) (Parameter, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Parameter{}, ParseError{Text: line, Reason: fmt.Sprintf("expected 3 fields, got %d", len(fields))}
	}
	if len(fields) > 3 && !p.Lenient {
		return Parameter{}, ParseError{Text: line, Reason: fmt.Sprintf("expected 3 fields, got %d", len(fields))}
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Parameter{}, ParseError{Text: line, Reason: fmt.Sprintf("id %q is not an integer", fields[0])}
	}
	raw, err := parseFinite(fields[1])
	if err != nil {
		return Parameter{}, ParseError{Text: line, Reason: fmt.Sprintf("value %q: %v", fields[1], err)}
	}
	presigma, err := parseFinite(fields[2])
	if err != nil {
		return Parameter{}, ParseError{Text: line, Reason: fmt.Sprintf("presigma %q: %v", fields[2], err)}
	}

	return Parameter{ID: id, Value: p.Scale * raw, Presigma: presigma}, nil
}

// Read parses a millepede result stream. Blank lines, the "Parameter"
// header and lines carrying a "!" comment are skipped; any other malformed
// line aborts the read.
func (p *Parser) Read(r io.Reader) ([]Parameter, error) {
	var params []Parameter
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.Contains(line, "Parameter") || strings.Contains(line, "!") {
			continue
		}
		par, err := p.ParseLine(line)
		if err != nil {
			pe := err.(ParseError)
			pe.Line = n
			return nil, pe
		}
		params = append(params, par)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("alignment: read: %w", err)
	}
	return params, nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

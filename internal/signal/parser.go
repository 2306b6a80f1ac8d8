package signal

import (
	"regexp"
	"strings"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

// ParseError reports syntactically malformed signal text. Line holds the
// offending input line when one can be identified.
type ParseError struct {
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	if e.Line == "" {
		return "parse: " + e.Reason
	}
	return "parse: " + e.Reason + ": " + e.Line
}

// PricePrecision is the decimal precision every parsed price is normalized to.
const PricePrecision = 5

// First line: side, instrument, optional entry price as "@1.0860",
// "[@1.0860]" or "[@1.0860 - Optional]".
var headLine = regexp.MustCompile(`^(BUY|SELL)\s+([A-Z]{3,12})(?:\s*(?:\[@?([0-9.]+)[^\]]*\]|@([0-9.]+)))?$`)

var levelLine = regexp.MustCompile(`^(SL|TP)\s+([^\s]+)$`)

// Parse turns raw webhook text into a Signal or a ParseError. It checks only
// syntactic well-formedness; relational checks between the prices belong to
// Validate.
func Parse(raw string) (model.Signal, *ParseError) {
	sig := model.Signal{RawText: raw}
	text := strings.TrimSpace(raw)
	text = stripQuotes(text)
	if text == "" {
		return sig, &ParseError{Reason: "empty message"}
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	head := strings.ToUpper(collapseSpaces(lines[0]))
	m := headLine.FindStringSubmatch(head)
	if m == nil {
		return sig, &ParseError{Reason: "invalid first line, want <SIDE> <INSTRUMENT> [@<PRICE>]", Line: lines[0]}
	}
	sig.Side = types.Side(m[1])
	sig.Instrument = m[2]
	if raw := m[3] + m[4]; raw != "" {
		price, err := parsePrice(raw)
		if err != nil {
			return sig, &ParseError{Reason: "invalid entry price", Line: lines[0]}
		}
		sig.EntryPrice = &price
	}

	var sl, tp *decimal.Decimal
	for _, line := range lines[1:] {
		m := levelLine.FindStringSubmatch(strings.ToUpper(collapseSpaces(line)))
		if m == nil {
			return sig, &ParseError{Reason: "unrecognized line, want SL <PRICE> or TP <PRICE>", Line: line}
		}
		price, err := parsePrice(m[2])
		if err != nil {
			return sig, &ParseError{Reason: "invalid " + m[1] + " price", Line: line}
		}
		switch m[1] {
		case "SL":
			if sl != nil {
				return sig, &ParseError{Reason: "duplicate SL line", Line: line}
			}
			sl = &price
		case "TP":
			if tp != nil {
				return sig, &ParseError{Reason: "duplicate TP line", Line: line}
			}
			tp = &price
		}
	}
	if sl == nil {
		return sig, &ParseError{Reason: "SL line missing"}
	}
	if tp == nil {
		return sig, &ParseError{Reason: "TP line missing"}
	}
	sig.StopLoss = *sl
	sig.TakeProfit = *tp
	return sig, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Round(PricePrecision), nil
}

func stripQuotes(s string) string {
	for _, q := range []string{`"`, `'`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

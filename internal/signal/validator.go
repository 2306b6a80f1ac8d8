package signal

import (
	"fmt"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

// Validation rule identifiers, carried on rejection events.
const (
	RuleUnknownInstrument = "unknown_instrument"
	RuleSideViolation     = "sl_tp_side_violation"
	RuleMaxDistance       = "sl_tp_distance"
)

// ValidationError reports a domain rule violation. Rule is one of the Rule*
// constants.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validate: " + e.Rule + ": " + e.Reason
}

// QuoteFunc returns the current simulated market price for an instrument.
type QuoteFunc func(instrument string) (decimal.Decimal, error)

type ValidatorConfig struct {
	Instruments map[string]bool
	MaxDistance decimal.Decimal
	Quote       QuoteFunc
}

// Validate enforces domain rules on a parsed signal, short-circuiting on the
// first failing rule. Market entries are checked against the current quote.
func Validate(sig model.Signal, cfg ValidatorConfig) *ValidationError {
	if !cfg.Instruments[sig.Instrument] {
		return &ValidationError{Rule: RuleUnknownInstrument, Reason: fmt.Sprintf("instrument %s is not supported", sig.Instrument)}
	}

	entry := decimal.Decimal{}
	if sig.EntryPrice != nil {
		entry = *sig.EntryPrice
	} else {
		market, err := cfg.Quote(sig.Instrument)
		if err != nil {
			return &ValidationError{Rule: RuleUnknownInstrument, Reason: fmt.Sprintf("no market price for %s", sig.Instrument)}
		}
		entry = market
	}

	switch sig.Side {
	case types.SideBuy:
		if !sig.StopLoss.LessThan(entry) || !entry.LessThan(sig.TakeProfit) {
			return &ValidationError{
				Rule:   RuleSideViolation,
				Reason: fmt.Sprintf("BUY requires SL < entry < TP, got SL %s, entry %s, TP %s", sig.StopLoss, entry, sig.TakeProfit),
			}
		}
	case types.SideSell:
		if !sig.TakeProfit.LessThan(entry) || !entry.LessThan(sig.StopLoss) {
			return &ValidationError{
				Rule:   RuleSideViolation,
				Reason: fmt.Sprintf("SELL requires TP < entry < SL, got SL %s, entry %s, TP %s", sig.StopLoss, entry, sig.TakeProfit),
			}
		}
	}

	// MaxDistance is a fraction of the entry price, so the same guard works
	// for sub-1 FX pairs and four-digit metals alike.
	if cfg.MaxDistance.IsPositive() && entry.IsPositive() {
		if entry.Sub(sig.StopLoss).Abs().Div(entry).GreaterThan(cfg.MaxDistance) {
			return &ValidationError{
				Rule:   RuleMaxDistance,
				Reason: fmt.Sprintf("SL %s is more than %s of entry %s away", sig.StopLoss, cfg.MaxDistance, entry),
			}
		}
		if entry.Sub(sig.TakeProfit).Abs().Div(entry).GreaterThan(cfg.MaxDistance) {
			return &ValidationError{
				Rule:   RuleMaxDistance,
				Reason: fmt.Sprintf("TP %s is more than %s of entry %s away", sig.TakeProfit, cfg.MaxDistance, entry),
			}
		}
	}
	return nil
}

package signal

import (
	"errors"
	"testing"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		Instruments: map[string]bool{"EURUSD": true, "GBPUSD": true},
		MaxDistance: dec("0.05"),
		Quote: func(instrument string) (decimal.Decimal, error) {
			if instrument == "EURUSD" {
				return dec("1.0860"), nil
			}
			return decimal.Decimal{}, errors.New("no quote")
		},
	}
}

func TestValidateAcceptsWellFormedBuy(t *testing.T) {
	sig := model.Signal{
		Side:       types.SideBuy,
		Instrument: "EURUSD",
		EntryPrice: decPtr("1.0850"),
		StopLoss:   dec("1.0800"),
		TakeProfit: dec("1.0900"),
	}
	assert.Nil(t, Validate(sig, testValidatorConfig()))
}

func TestValidateUnknownInstrument(t *testing.T) {
	sig := model.Signal{
		Side:       types.SideBuy,
		Instrument: "DOGEUSD",
		EntryPrice: decPtr("1"),
		StopLoss:   dec("0.99"),
		TakeProfit: dec("1.01"),
	}
	verr := Validate(sig, testValidatorConfig())
	require.NotNil(t, verr)
	assert.Equal(t, RuleUnknownInstrument, verr.Rule)
}

func TestValidateSideViolations(t *testing.T) {
	cases := []struct {
		name string
		sig  model.Signal
	}{
		{"buy sl above entry", model.Signal{
			Side: types.SideBuy, Instrument: "EURUSD",
			EntryPrice: decPtr("1.0850"), StopLoss: dec("1.0900"), TakeProfit: dec("1.0950"),
		}},
		{"buy tp below entry", model.Signal{
			Side: types.SideBuy, Instrument: "EURUSD",
			EntryPrice: decPtr("1.0850"), StopLoss: dec("1.0800"), TakeProfit: dec("1.0820"),
		}},
		{"sell levels inverted", model.Signal{
			Side: types.SideSell, Instrument: "EURUSD",
			EntryPrice: decPtr("1.0850"), StopLoss: dec("1.0800"), TakeProfit: dec("1.0900"),
		}},
		{"buy sl equals entry", model.Signal{
			Side: types.SideBuy, Instrument: "EURUSD",
			EntryPrice: decPtr("1.0850"), StopLoss: dec("1.0850"), TakeProfit: dec("1.0900"),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := Validate(tc.sig, testValidatorConfig())
			require.NotNil(t, verr)
			assert.Equal(t, RuleSideViolation, verr.Rule)
		})
	}
}

func TestValidateMarketEntryUsesQuote(t *testing.T) {
	// Quote for EURUSD is 1.0860, so these levels bracket it.
	sig := model.Signal{
		Side:       types.SideBuy,
		Instrument: "EURUSD",
		StopLoss:   dec("1.0810"),
		TakeProfit: dec("1.0910"),
	}
	assert.Nil(t, Validate(sig, testValidatorConfig()))

	// GBPUSD has no quote, so a market entry cannot be checked.
	sig.Instrument = "GBPUSD"
	verr := Validate(sig, testValidatorConfig())
	require.NotNil(t, verr)
	assert.Equal(t, RuleUnknownInstrument, verr.Rule)
}

func TestValidateMaxDistance(t *testing.T) {
	// SL 10% below entry with a 5% cap.
	sig := model.Signal{
		Side:       types.SideBuy,
		Instrument: "EURUSD",
		EntryPrice: decPtr("1.0000"),
		StopLoss:   dec("0.9000"),
		TakeProfit: dec("1.0100"),
	}
	verr := Validate(sig, testValidatorConfig())
	require.NotNil(t, verr)
	assert.Equal(t, RuleMaxDistance, verr.Rule)

	// Same shape passes when the cap is disabled.
	cfg := testValidatorConfig()
	cfg.MaxDistance = decimal.Decimal{}
	assert.Nil(t, Validate(sig, cfg))
}

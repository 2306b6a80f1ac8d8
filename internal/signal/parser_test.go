package signal

import (
	"testing"

	"sigflow/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLimitEntry(t *testing.T) {
	sig, perr := Parse("BUY EURUSD [@1.0850]\nSL 1.0800\nTP 1.0900")
	require.Nil(t, perr)
	assert.Equal(t, types.SideBuy, sig.Side)
	assert.Equal(t, "EURUSD", sig.Instrument)
	require.NotNil(t, sig.EntryPrice)
	assert.True(t, sig.EntryPrice.Equal(decimal.RequireFromString("1.0850")))
	assert.True(t, sig.StopLoss.Equal(decimal.RequireFromString("1.0800")))
	assert.True(t, sig.TakeProfit.Equal(decimal.RequireFromString("1.0900")))
}

func TestParseMarketEntry(t *testing.T) {
	sig, perr := Parse("SELL GBPUSD\nSL 1.2800\nTP 1.2700")
	require.Nil(t, perr)
	assert.Equal(t, types.SideSell, sig.Side)
	assert.Nil(t, sig.EntryPrice, "no entry price means market entry")
}

func TestParseTolerance(t *testing.T) {
	// Mixed case, stray whitespace, surrounding quotes, annotated bracket
	// entry, SL and TP in either order.
	raw := "\"  buy eurusd   [@1.0850 - Optional]\n\n  tp 1.0900\n sl   1.0800  \""
	sig, perr := Parse(raw)
	require.Nil(t, perr)
	assert.Equal(t, types.SideBuy, sig.Side)
	require.NotNil(t, sig.EntryPrice)
	assert.True(t, sig.EntryPrice.Equal(decimal.RequireFromString("1.0850")))
	assert.Equal(t, raw, sig.RawText)
}

func TestParseAtEntryWithoutBrackets(t *testing.T) {
	sig, perr := Parse("BUY XAUUSD @2405.50\nSL 2390\nTP 2430")
	require.Nil(t, perr)
	require.NotNil(t, sig.EntryPrice)
	assert.True(t, sig.EntryPrice.Equal(decimal.RequireFromString("2405.5")))
}

func TestParsePriceRounding(t *testing.T) {
	sig, perr := Parse("BUY EURUSD [@1.08504999]\nSL 1.08001\nTP 1.09002")
	require.Nil(t, perr)
	assert.Equal(t, "1.08505", sig.EntryPrice.String())
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"empty", "   \n  ", "empty message"},
		{"bad head", "HOLD EURUSD\nSL 1\nTP 2", "invalid first line, want <SIDE> <INSTRUMENT> [@<PRICE>]"},
		{"missing sl", "SELL GBPUSD", "SL line missing"},
		{"missing tp", "BUY EURUSD\nSL 1.0800", "TP line missing"},
		{"duplicate sl", "BUY EURUSD\nSL 1.08\nSL 1.07\nTP 1.09", "duplicate SL line"},
		{"duplicate tp", "BUY EURUSD\nSL 1.08\nTP 1.09\nTP 1.10", "duplicate TP line"},
		{"junk line", "BUY EURUSD\nSL 1.08\nTP 1.09\nlots 0.5", "unrecognized line, want SL <PRICE> or TP <PRICE>"},
		{"bad sl price", "BUY EURUSD\nSL 1.0.8\nTP 1.09", "invalid SL price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, perr := Parse(tc.raw)
			require.NotNil(t, perr)
			assert.Equal(t, tc.reason, perr.Reason)
		})
	}
}

func TestParseErrorCarriesLine(t *testing.T) {
	_, perr := Parse("BUY EURUSD\nSL 1.08\nTP 1.09\nlots 0.5")
	require.NotNil(t, perr)
	assert.Equal(t, "lots 0.5", perr.Line)
}

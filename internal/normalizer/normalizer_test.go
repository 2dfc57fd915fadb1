package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AccountTotals(t *testing.T) {
	raw := []byte(`{"accountTotals":[{"id":"gpt-5_3","name":"GPT 5","positions":{
		"BTC":{"quantity":-0.5,"entry_price":60000,"entry_oid":123456,"entry_time":1700000000,
		       "exit_plan":{"profit_target":55000,"stop_loss":62000},"risk_usd":150,"leverage":10,"confidence":0.7},
		"ETH":{"qty":"2.5"}
	}}]}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "accountTotals", name)
	assert.Equal(t, "gpt-5_3", blocks[0].ModelID)
	assert.Equal(t, "GPT 5", blocks[0].Name)

	btc := blocks[0].Positions["BTC"]
	assert.Equal(t, -0.5, btc.SignedQuantity)
	assert.Equal(t, 60000.0, btc.EntryPrice)
	assert.Equal(t, "123456", btc.EntryOrderID)
	assert.Equal(t, 1700000000.0, btc.EntryTimestamp)
	require.NotNil(t, btc.ExitPlan.TakeProfit)
	require.NotNil(t, btc.ExitPlan.StopLoss)
	assert.Equal(t, 55000.0, *btc.ExitPlan.TakeProfit)
	assert.Equal(t, 62000.0, *btc.ExitPlan.StopLoss)
	assert.Equal(t, 150.0, btc.RiskUSD)
	assert.Equal(t, 10.0, btc.Leverage)
	require.NotNil(t, btc.Confidence)
	assert.Equal(t, 0.7, *btc.Confidence)

	assert.Equal(t, 2.5, blocks[0].Positions["ETH"].SignedQuantity)
}

func TestNormalize_PriorityAccountTotalsOverModels(t *testing.T) {
	raw := []byte(`{
		"accountTotals":[{"id":"a","positions":{"BTC":{"quantity":1}}}],
		"models":[{"id":"b","positions":{"ETH":{"quantity":2}}}]
	}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "accountTotals", name)
	assert.Equal(t, "a", blocks[0].ModelID)
}

func TestNormalize_FallsThroughEmptyShape(t *testing.T) {
	raw := []byte(`{
		"accountTotals":[{"id":"a","positions":{}}],
		"models":[{"id":"b","positions":[{"symbol":"eth","amount":3}]}]
	}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "models", name)
	assert.Equal(t, 3.0, blocks[0].Positions["ETH"].SignedQuantity)
}

func TestNormalize_EmptyAccountTotalsFallsBackToLegacyPositions(t *testing.T) {
	raw := []byte(`{
		"accountTotals":[{"id":"deepseek-chat-v3.1","positions":{}}],
		"positions":{"BTC":{"quantity":0.5,"entry_oid":"e7"}}
	}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "legacy_positions", name)
	require.Contains(t, blocks[0].Positions, "BTC")
	assert.Equal(t, 0.5, blocks[0].Positions["BTC"].SignedQuantity)
	assert.Equal(t, "e7", blocks[0].Positions["BTC"].EntryOrderID)
}

func TestNormalize_NonFiniteQuantityDropped(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "-Inf", "Infinity", "+Infinity"} {
		raw := []byte(`{"positions":{"ETH":{"quantity":"` + v + `"},"BTC":{"quantity":"1.5"}}}`)

		blocks := Normalize(raw)
		require.Len(t, blocks, 1, v)
		assert.NotContains(t, blocks[0].Positions, "ETH", v)
		assert.Equal(t, 1.5, blocks[0].Positions["BTC"].SignedQuantity, v)
	}

	// нечисловая цена входа просто не заполняется
	blocks := Normalize([]byte(`{"positions":{"SOL":{"quantity":2,"entry_price":"NaN"}}}`))
	require.Len(t, blocks, 1)
	assert.Equal(t, 0.0, blocks[0].Positions["SOL"].EntryPrice)
}

func TestNormalize_KeepsEmptyBlocksOfWinningShape(t *testing.T) {
	raw := []byte(`{"accountTotals":[
		{"id":"flat","positions":{}},
		{"id":"busy","positions":{"SOL":{"quantity":10}}}
	]}`)

	blocks := Normalize(raw)
	require.Len(t, blocks, 2)
	assert.Empty(t, blocks[0].Positions)
	assert.Len(t, blocks[1].Positions, 1)
}

func TestNormalize_DataModels(t *testing.T) {
	raw := []byte(`{"data":{"models":[{"id":"m","positions":{"DOGE":{"size":"-1000"}}}]}}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "data.models", name)
	assert.Equal(t, -1000.0, blocks[0].Positions["DOGE"].SignedQuantity)
}

func TestNormalize_AccountsWithAssets(t *testing.T) {
	raw := []byte(`{"accounts":[
		{"name":"alpha","assets":[{"coin":"btc","balance":0.1},{"coin":"eth"}]},
		{"id":"empty","positions":[]}
	]}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "accounts", name)
	assert.Equal(t, "alpha", blocks[0].ModelID)
	assert.Len(t, blocks[0].Positions, 1)
	assert.Equal(t, 0.1, blocks[0].Positions["BTC"].SignedQuantity)
}

func TestNormalize_TotalsGroupedByID(t *testing.T) {
	raw := []byte(`{"totals":[
		{"id":"x","symbol":"BTC","qty":1},
		{"id":"y","ticker":"ETH","qty":2},
		{"id":"x","asset":"SOL","qty":3},
		{"symbol":"XRP","qty":4},
		{"id":"x","symbol":"BNB"}
	]}`)

	blocks, name := NormalizeNamed(raw)
	assert.Equal(t, "totals", name)
	require.Len(t, blocks, 3)
	assert.Equal(t, "x", blocks[0].ModelID)
	assert.Len(t, blocks[0].Positions, 2)
	assert.Equal(t, "y", blocks[1].ModelID)
	assert.Equal(t, "default", blocks[2].ModelID)
}

func TestNormalize_SingleAccount(t *testing.T) {
	raw := []byte(`{"id":"solo","totals":{"btc":{"position":0.3}}}`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "account", name)
	assert.Equal(t, "solo", blocks[0].ModelID)
	assert.Equal(t, 0.3, blocks[0].Positions["BTC"].SignedQuantity)
}

func TestNormalize_LegacyList(t *testing.T) {
	raw := []byte(`[{"id":"old","positions":[{"symbol":"ETH","quantity":1,"side":"short"}]}]`)

	blocks, name := NormalizeNamed(raw)
	require.Len(t, blocks, 1)
	assert.Equal(t, "legacy_list", name)
	assert.Equal(t, -1.0, blocks[0].Positions["ETH"].SignedQuantity)
}

func TestNormalize_LegacyPositions(t *testing.T) {
	blocks, name := NormalizeNamed([]byte(`{"modelId":"legacy","positions":{"BTC":{"value":2}}}`))
	require.Len(t, blocks, 1)
	assert.Equal(t, "legacy_positions", name)
	assert.Equal(t, "legacy", blocks[0].ModelID)

	blocks = Normalize([]byte(`{"positions":[{"symbol":"BTC","quantity":-2}]}`))
	require.Len(t, blocks, 1)
	assert.Equal(t, "default", blocks[0].ModelID)
	assert.Equal(t, -2.0, blocks[0].Positions["BTC"].SignedQuantity)
}

func TestNormalize_SideSetsSign(t *testing.T) {
	raw := []byte(`{"models":[{"id":"m","positions":{
		"A":{"quantity":5,"side":"SHORT"},
		"B":{"quantity":-5,"side":"long"},
		"C":{"quantity":-5}
	}}]}`)

	pos := Normalize(raw)[0].Positions
	assert.Equal(t, -5.0, pos["A"].SignedQuantity)
	assert.Equal(t, 5.0, pos["B"].SignedQuantity)
	assert.Equal(t, -5.0, pos["C"].SignedQuantity)
}

func TestNormalize_RowsWithoutQuantityDropped(t *testing.T) {
	raw := []byte(`{"models":[{"id":"m","positions":{
		"A":{"quantity":"abc"},
		"B":{"entry_price":1},
		"C":"not-a-row",
		"D":{"quantity":1}
	}}]}`)

	pos := Normalize(raw)[0].Positions
	assert.Len(t, pos, 1)
	assert.Contains(t, pos, "D")
}

func TestNormalize_Malformed(t *testing.T) {
	for _, raw := range []string{``, `{`, `null`, `42`, `"str"`, `{}`, `[]`, `{"models":"x"}`, `{"accountTotals":[1,2]}`} {
		assert.Empty(t, Normalize([]byte(raw)), raw)
	}
}

func TestNormalize_AvgPriceAlias(t *testing.T) {
	raw := []byte(`{"models":[{"id":"m","positions":{"BTC":{"quantity":1,"avg_price":"101.5","lev":"3","conf":0.4}}}]}`)

	btc := Normalize(raw)[0].Positions["BTC"]
	assert.Equal(t, 101.5, btc.EntryPrice)
	assert.Equal(t, 3.0, btc.Leverage)
	require.NotNil(t, btc.Confidence)
	assert.Equal(t, 0.4, *btc.Confidence)
	assert.Nil(t, btc.ExitPlan.TakeProfit)
}

func TestParserNamesOrder(t *testing.T) {
	assert.Equal(t, []string{
		"accountTotals", "models", "data.models", "accounts",
		"totals", "account", "legacy_list", "legacy_positions",
	}, ParserNames())
}

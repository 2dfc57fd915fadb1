package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mirror_bot/internal/modules/config"
)

func TestTargetSymbols(t *testing.T) {
	cfg := &config.Config{SymbolMap: map[string]string{"ETH": "ETHUSDT", "BTC": "BTCUSDT"}}

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, targetSymbols(cfg, ""))
	assert.Equal(t, []string{"SOLUSDT"}, targetSymbols(cfg, "solusdt"))
}

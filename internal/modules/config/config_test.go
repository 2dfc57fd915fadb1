package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirror_bot/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const baseYAML = `
exchange:
  api_key: key
  api_secret: secret
symbol_map:
  btc: BTCUSDT
  ETH: ETHUSDT
`

func TestLoad_DefaultsAndNormalize(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML+`
sizing:
  tolerance:
    mode: by_step
    value: 2
    per_symbol:
      DOGEUSDT: {mode: notional_usd, value: 1}
loop:
  backoff_max: 3s
`))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.SymbolMap["BTC"])
	assert.Equal(t, SizingMirrorScale, cfg.Sizing.Mode)
	assert.Equal(t, 0.05, cfg.Sizing.Scale)
	assert.Equal(t, models.ToleranceByStep, cfg.Sizing.Tolerance.Mode)
	assert.Equal(t, 2.0, cfg.Sizing.Tolerance.Value)
	assert.Equal(t, models.ToleranceRule{Mode: models.ToleranceNotionalUSD, Value: 1}, cfg.Sizing.Tolerance.PerSymbol["DOGEUSDT"])
	assert.Equal(t, 3*time.Second, cfg.Loop.BackoffMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Loop.BackoffMin)
	assert.Equal(t, 10*time.Second, cfg.Guards.StartupCooldown())
	assert.Equal(t, "linear", cfg.Exchange.Category)
}

func TestLoad_LegacyQtyToleranceIsAbsolute(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML+`
sizing:
  qty_tolerance: 0.1
`))
	require.NoError(t, err)
	assert.Equal(t, models.ToleranceAbsolute, cfg.Sizing.Tolerance.Mode)
	assert.Equal(t, 0.1, cfg.Sizing.Tolerance.Value)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(apiKeyENV, "env-key")
	t.Setenv(chatTelegramENV, "12345")

	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Exchange.APIKey)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := map[string]string{
		"placeholder key": `
exchange: {api_key: PUT_YOUR_API_KEY_HERE, api_secret: s}
symbol_map: {BTC: BTCUSDT}
`,
		"empty symbol map": `
exchange: {api_key: k, api_secret: s}
`,
		"bad sizing mode": baseYAML + `
sizing: {mode: yolo}
`,
		"bad tolerance mode": baseYAML + `
sizing:
  tolerance: {mode: furlongs, value: 1}
`,
		"postgres without dsn": baseYAML + `
state: {backend: postgres}
`,
		"zero exchange timeout": `
exchange: {api_key: k, api_secret: s, timeout: 0s}
symbol_map: {BTC: BTCUSDT}
`,
		"zero feed timeout": baseYAML + `
feed: {timeout: 0s}
`,
		"zero poll interval": baseYAML + `
feed: {poll_interval: 0s}
`,
		"negative connect timeout": baseYAML + `
feed: {connect_timeout: -1s}
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_TimeoutsMustBeBounded(t *testing.T) {
	_, err := Load(writeConfig(t, `
exchange: {api_key: k, api_secret: s, timeout: 0s}
feed: {timeout: 0s}
symbol_map: {BTC: BTCUSDT}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange.timeout")

	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)
	assert.Positive(t, cfg.Exchange.Timeout)
	assert.Positive(t, cfg.Feed.Timeout)
	assert.Positive(t, cfg.Feed.PollInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

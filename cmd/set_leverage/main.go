package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mirror_bot/internal/modules/bybit_client/service"
	"mirror_bot/internal/modules/config"
	"mirror_bot/pkg/logger"
)

// пауза между запросами, чтобы не упираться в лимиты Bybit
const pacing = 150 * time.Millisecond

func bindFlags() (*viper.Viper, error) {
	flags := pflag.NewFlagSet("set_leverage", pflag.ContinueOnError)
	flags.String("config", "configs/values_local.yaml", "path to config file")
	flags.Int("leverage", 0, "target leverage, 0 = exchange.leverage_default")
	flags.String("symbol", "", "single exchange symbol, empty = all mapped symbols")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errors.Wrap(err, "parse flags")
	}

	v := viper.New()
	v.SetEnvPrefix("MIRROR")
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	if env := os.Getenv("CONFIG_FILE"); env != "" && !flags.Changed("config") {
		v.Set("config", env)
	}
	return v, nil
}

func targetSymbols(cfg *config.Config, only string) []string {
	if only != "" {
		return []string{strings.ToUpper(only)}
	}
	out := make([]string, 0, len(cfg.SymbolMap))
	for _, s := range cfg.SymbolMap {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func run() error {
	v, err := bindFlags()
	if err != nil {
		return err
	}

	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	closeLog, err := logger.Init(logger.Config{ConsoleLevel: "info"})
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	defer closeLog()

	lev := v.GetInt("leverage")
	if lev <= 0 {
		lev = cfg.Exchange.LeverageDefault
	}
	if lev < 1 {
		lev = 1
	}
	symbols := targetSymbols(cfg, v.GetString("symbol"))
	if len(symbols) == 0 {
		return errors.New("no symbols to update")
	}

	client := service.NewClient(cfg)
	logger.Info("🪙 Category: %s", cfg.Exchange.Category)
	logger.Info("🎯 Target leverage: %dx", lev)
	logger.Info("🔧 Symbols: %s", strings.Join(symbols, ", "))

	ok, fail := 0, 0
	for i, sym := range symbols {
		if i > 0 {
			time.Sleep(pacing)
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Exchange.Timeout)
		err := client.SetLeverage(ctx, sym, lev)
		cancel()
		if err != nil {
			fail++
			logger.Warn("❌ %s: %v", sym, err)
			continue
		}
		ok++
		logger.Info("✅ %s: %dx", sym, lev)
	}

	logger.Info("Done: OK=%d FAIL=%d", ok, fail)
	if fail > 0 {
		return errors.Errorf("%d of %d symbols failed", fail, len(symbols))
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

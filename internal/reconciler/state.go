package reconciler

import (
	"context"
	"fmt"
	"strconv"

	"mirror_bot/internal/models"
)

// loadState значения приходят из JSON, поэтому типы приводятся мягко.
func loadState(store StateStore, symbol string) models.SymbolState {
	return models.SymbolState{
		LastEntryOrderID: asString(store.Get(symbol, models.StateLastEntryOID, "")),
		Joined:           asBool(store.Get(symbol, models.StateJoined, false)),
		FirstEntryPrice:  asFloat(store.Get(symbol, models.StateFirstEntryPrice, 0.0)),
	}
}

// rememberEntry новый сигнал: запоминаем id, сбрасываем joined.
func rememberEntry(ctx context.Context, store StateStore, symbol string, t models.TargetPosition) error {
	if err := store.Set(ctx, symbol, models.StateLastEntryOID, t.EntryOrderID); err != nil {
		return fmt.Errorf("persist %s: %w", models.StateLastEntryOID, err)
	}
	if err := store.Set(ctx, symbol, models.StateJoined, false); err != nil {
		return fmt.Errorf("persist %s: %w", models.StateJoined, err)
	}
	if err := store.Set(ctx, symbol, models.StateFirstEntryPrice, t.EntryPrice); err != nil {
		return fmt.Errorf("persist %s: %w", models.StateFirstEntryPrice, err)
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		r, _ := strconv.ParseBool(b)
		return r
	case float64:
		return b != 0
	}
	return false
}

func asFloat(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	case int64:
		return float64(f)
	case string:
		r, _ := strconv.ParseFloat(f, 64)
		return r
	}
	return 0
}

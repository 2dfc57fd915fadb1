package reconciler

import (
	"context"

	"mirror_bot/internal/models"
)

// SignalSource фид целевых позиций. Ошибка — только транспорт, пустой ответ не ошибка.
type SignalSource interface {
	Fetch(ctx context.Context) ([]models.ModelBlock, error)
}

// ExchangeGateway брокер. Все методы блокирующие и ограничены таймаутом.
type ExchangeGateway interface {
	GetLivePosition(ctx context.Context, symbol string) (models.LivePosition, error)
	GetLotConstraint(ctx context.Context, symbol string) (models.LotConstraint, error)
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	SubmitOpen(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) error
	SubmitReduceOnly(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) error
	SetProtectiveOrders(ctx context.Context, symbol string, tp, sl *float64) error
	// SetLeverage "not modified" считается успехом.
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// StateStore Set возвращается только после сброса на носитель.
type StateStore interface {
	Get(symbol, key string, def any) any
	Set(ctx context.Context, symbol, key string, value any) error
}

// Reserver объём позиции, принадлежащий другим потребителям счёта.
type Reserver interface {
	Reserved(symbol string) float64
}

// ActionSink канал аудита торговых действий.
type ActionSink interface {
	Emit(ctx context.Context, ev models.ActionEvent)
}

// StaticReserver резерв из конфига, биржевой символ → qty.
type StaticReserver map[string]float64

func (r StaticReserver) Reserved(symbol string) float64 {
	if v := r[symbol]; v > 0 {
		return v
	}
	return 0
}

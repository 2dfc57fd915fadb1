package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mirror_bot/internal/models"
	"mirror_bot/internal/modules/config"
	health "mirror_bot/internal/modules/health/service"
	"mirror_bot/pkg/logger"
)

const queueSize = 256

// PositionReader живые позиции для /positions.
type PositionReader interface {
	GetLivePosition(ctx context.Context, symbol string) (models.LivePosition, error)
}

// StatusReader состояние раннера для /status.
type StatusReader interface {
	Snapshot() health.Snapshot
}

// Telegram канал уведомлений в один чат. Отправка асинхронная: движок не ждёт сеть.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	positions PositionReader
	status    StatusReader
	symbols   []string

	queue  chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTelegram без токена или чата возвращает nil — уведомления выключены.
func NewTelegram(cfg *config.Config, positions PositionReader, status StatusReader) (*Telegram, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		logger.Info("[TG] token/chat not set, notifications disabled")
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	symbols := make([]string, 0, len(cfg.SymbolMap))
	for _, s := range cfg.SymbolMap {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	return &Telegram{
		bot:       b,
		chatID:    cfg.Telegram.ChatID,
		positions: positions,
		status:    status,
		symbols:   symbols,
		queue:     make(chan string, queueSize),
	}, nil
}

// Send ставит сообщение в очередь; при переполнении сообщение теряется.
func (t *Telegram) Send(msg string) {
	if t == nil {
		return
	}
	select {
	case t.queue <- msg:
	default:
		logger.Warn("[TG] queue full, message dropped")
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start: отправка из очереди + long-polling команд.
func (t *Telegram) Start(parent context.Context) {
	if t == nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.sendLoop(ctx)
	}()

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, upd)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t == nil || t.cancel == nil {
		return
	}
	t.bot.StopReceivingUpdates()
	t.cancel()
	t.wg.Wait()
}

// sendLoop после отмены дописывает то, что уже в очереди.
func (t *Telegram) sendLoop(ctx context.Context) {
	for {
		select {
		case msg := <-t.queue:
			t.deliver(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-t.queue:
					t.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (t *Telegram) deliver(msg string) {
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] send failed: %v", err)
	}
}

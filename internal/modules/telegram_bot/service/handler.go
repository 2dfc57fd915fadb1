package service

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "positions":
		go t.handlePositions(ctx)
	case "status":
		t.handleStatus()
	case "help", "start":
		t.Send("/positions — позиции на бирже\n/status — состояние зеркалирования")
	}
}

// /positions — живые позиции по символам маппинга
func (t *Telegram) handlePositions(ctx context.Context) {
	if t.positions == nil {
		t.Send("❗️ Клиент биржи не инициализирован")
		return
	}

	var lines []string
	for _, sym := range t.symbols {
		p, err := t.positions.GetLivePosition(ctx, sym)
		if err != nil {
			lines = append(lines, fmt.Sprintf("- %s: ошибка %v\n", sym, err))
			continue
		}
		if p.IsFlat() {
			continue
		}
		lines = append(lines, formatPosition(p))
	}
	if len(lines) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}
	t.Send("📊 Открытые позиции:\n" + strings.Join(lines, ""))
}

func (t *Telegram) handleStatus() {
	if t.status == nil {
		return
	}
	t.Send(formatStatus(t.status.Snapshot()))
}

package notify

import (
	"context"
	"fmt"
	"strings"

	"mirror_bot/internal/models"
	"mirror_bot/pkg/logger"
)

// Sender канал доставки человекочитаемых сообщений (Telegram).
type Sender interface {
	Send(msg string)
}

// ActionNotifier пишет аудит действий в лог действий и дублирует в Sender.
type ActionNotifier struct {
	sender Sender
}

func NewActionNotifier(sender Sender) *ActionNotifier {
	return &ActionNotifier{sender: sender}
}

func (n *ActionNotifier) Emit(_ context.Context, ev models.ActionEvent) {
	line := FormatAction(ev)
	if ev.Err != nil {
		logger.Action("%s FAILED: %v", line, ev.Err)
	} else {
		logger.Action("%s", line)
	}

	if n.sender == nil {
		return
	}
	if ev.Err != nil {
		n.sender.Send(fmt.Sprintf("❌ %s\n%v", line, ev.Err))
		return
	}
	n.sender.Send("✅ " + line)
}

// FormatAction одна строка аудита: "OPEN BTCUSDT LONG qty=0.01 id=OPEN_BTCUSDT_120000_ab12".
func FormatAction(ev models.ActionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", ev.Action, ev.Symbol)
	if ev.Side != "" {
		fmt.Fprintf(&b, " %s", ev.Side)
	}
	if ev.Action == models.ActionTPSL {
		if ev.TP != nil {
			fmt.Fprintf(&b, " TP=%g", *ev.TP)
		}
		if ev.SL != nil {
			fmt.Fprintf(&b, " SL=%g", *ev.SL)
		}
		return b.String()
	}
	fmt.Fprintf(&b, " qty=%g", ev.Quantity)
	if ev.ClientID != "" {
		fmt.Fprintf(&b, " id=%s", ev.ClientID)
	}
	return b.String()
}

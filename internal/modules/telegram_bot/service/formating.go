package service

import (
	"fmt"
	"strings"
	"time"

	"mirror_bot/internal/models"
	health "mirror_bot/internal/modules/health/service"
)

func formatPosition(p models.LivePosition) string {
	side := "LONG"
	if p.Side == models.SideShort {
		side = "SHORT"
	}
	entry := "—"
	if p.AvgEntryPrice != nil {
		entry = f4(*p.AvgEntryPrice)
	}
	line := fmt.Sprintf("- %s [%s] qty=%s @ %s", p.Symbol, side, f4(p.Quantity), entry)
	if p.TakeProfit > 0 {
		line += " TP=" + f4(p.TakeProfit)
	}
	if p.StopLoss > 0 {
		line += " SL=" + f4(p.StopLoss)
	}
	return line + "\n"
}

func formatStatus(s health.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*🪞 Зеркалирование*\n\n")
	fmt.Fprintf(&b, "Готов: %s\n", onOff(s.Ready))
	fmt.Fprintf(&b, "Аптайм: %s\n", s.Uptime.Truncate(time.Second))
	fmt.Fprintf(&b, "Модель: %s (%s), символов: %d\n", s.Model, matchLabel(s.Matched), s.Symbols)
	fmt.Fprintf(&b, "Последний цикл: %s\n", ago(s.LastCycle))
	fmt.Fprintf(&b, "Последний фид: %s\n", ago(s.LastFeed))
	if s.LastError != "" {
		fmt.Fprintf(&b, "Ошибка: %s\n", s.LastError)
	}
	return b.String()
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "никогда"
	}
	return fmt.Sprintf("%s назад", time.Since(t).Truncate(time.Second))
}

func matchLabel(ok bool) string {
	if ok {
		return "найдена"
	}
	return "не найдена"
}

func onOff(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

func f4(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

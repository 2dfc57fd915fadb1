package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mirror_bot/internal/models"
)

// clientID orderLinkId вида OPEN_BTCUSDT_142501_9f3a.
func clientID(action models.Action, symbol string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("%s_%s_%s_%s", action, symbol, now.Format("150405"), suffix)
}

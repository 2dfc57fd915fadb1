package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirror_bot/internal/models"
)

type senderStub struct{ msgs []string }

func (s *senderStub) Send(msg string) { s.msgs = append(s.msgs, msg) }

func ptr(v float64) *float64 { return &v }

func TestFormatAction(t *testing.T) {
	assert.Equal(t,
		"OPEN BTCUSDT Long qty=0.01 id=OPEN_BTCUSDT_120000_ab12",
		FormatAction(models.ActionEvent{
			Action: models.ActionOpen, Symbol: "BTCUSDT", Side: models.SideLong,
			Quantity: 0.01, ClientID: "OPEN_BTCUSDT_120000_ab12",
		}))

	assert.Equal(t,
		"TPSL ETHUSDT Short SL=3900",
		FormatAction(models.ActionEvent{
			Action: models.ActionTPSL, Symbol: "ETHUSDT", Side: models.SideShort, SL: ptr(3900),
		}))
}

func TestEmitForwardsToSender(t *testing.T) {
	s := &senderStub{}
	n := NewActionNotifier(s)

	n.Emit(context.Background(), models.ActionEvent{Action: models.ActionClose, Symbol: "SOLUSDT", Side: models.SideShort, Quantity: 3})
	n.Emit(context.Background(), models.ActionEvent{Action: models.ActionOpen, Symbol: "SOLUSDT", Side: models.SideLong, Quantity: 1, Err: errors.New("rejected")})

	require.Len(t, s.msgs, 2)
	assert.Equal(t, "✅ CLOSE SOLUSDT Short qty=3", s.msgs[0])
	assert.Equal(t, "❌ OPEN SOLUSDT Long qty=1\nrejected", s.msgs[1])
}

func TestEmitWithoutSender(t *testing.T) {
	n := NewActionNotifier(nil)
	assert.NotPanics(t, func() {
		n.Emit(context.Background(), models.ActionEvent{Action: models.ActionOpen, Symbol: "X"})
	})
}

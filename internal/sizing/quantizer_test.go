package sizing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapQuantity(t *testing.T) {
	tests := []struct {
		name          string
		raw, min, stp float64
		want          float64
	}{
		{"floors to step", 0.1234, 0.001, 0.001, 0.123},
		{"exact multiple", 0.3, 0.1, 0.1, 0.3},
		{"below minimum", 0.004, 0.01, 0.001, 0},
		{"equal to minimum", 0.01, 0.01, 0.001, 0.01},
		{"integer step", 17.9, 1, 1, 17},
		{"coarse step", 27, 0, 10, 20},
		{"half step", 2.74, 0, 0.5, 2.5},
		{"zero raw", 0, 0, 0.01, 0},
		{"negative raw", -3, 0, 0.01, 0},
		{"zero step uses epsilon", 0.123456789, 0, 0, 0.12345678},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapQuantity(tt.raw, tt.min, tt.stp))
		})
	}
}

func TestSnapQuantity_NonFiniteIsZero(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.NotPanics(t, func() {
			assert.Equal(t, 0.0, SnapQuantity(v, 0, 0.01), "raw=%v", v)
			assert.Equal(t, 0.0, SnapQuantity(1.5, 0, v), "step=%v", v)
			assert.Equal(t, 0.0, FloorToStep(v, 0.1), "raw=%v", v)
		})
	}
}

func TestSnapQuantity_Idempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	steps := []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 1e-8}

	for i := 0; i < 2000; i++ {
		step := steps[rnd.Intn(len(steps))]
		minQty := step * float64(rnd.Intn(5))
		x := rnd.Float64() * 1000

		once := SnapQuantity(x, minQty, step)
		twice := SnapQuantity(once, minQty, step)
		require.Equal(t, once, twice, "x=%v min=%v step=%v", x, minQty, step)
	}
}

func TestSnapQuantity_LowerBoundAndMultiple(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	steps := []float64{0.001, 0.01, 0.1, 0.5, 1, 25}

	for i := 0; i < 2000; i++ {
		step := steps[rnd.Intn(len(steps))]
		minQty := step * float64(rnd.Intn(4))
		x := rnd.Float64() * 500

		got := SnapQuantity(x, minQty, step)
		if got == 0 {
			continue
		}
		require.GreaterOrEqual(t, got, minQty)
		require.LessOrEqual(t, got, x)

		ratio := got / step
		require.InDelta(t, math.Round(ratio), ratio, 1e-9, "got=%v step=%v", got, step)
	}
}

func TestFloorToStep(t *testing.T) {
	assert.Equal(t, 0.1, FloorToStep(20.0/200.0, 0.01))
	assert.Equal(t, 0.07, FloorToStep(0.0799, 0.01))
	assert.Equal(t, 0.0, FloorToStep(0.009, 0.01))
}

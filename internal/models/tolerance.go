package models

type ToleranceMode string

const (
	ToleranceByStep        ToleranceMode = "by_step"
	ToleranceNotionalUSD   ToleranceMode = "notional_usd"
	TolerancePercentTarget ToleranceMode = "percent_target"
	ToleranceAbsolute      ToleranceMode = "absolute"
)

func (m ToleranceMode) Valid() bool {
	switch m {
	case ToleranceByStep, ToleranceNotionalUSD, TolerancePercentTarget, ToleranceAbsolute:
		return true
	}
	return false
}

// ToleranceRule порог расхождения, ниже которого ордер не отправляется.
type ToleranceRule struct {
	Mode  ToleranceMode `yaml:"mode"`
	Value float64       `yaml:"value"`
}

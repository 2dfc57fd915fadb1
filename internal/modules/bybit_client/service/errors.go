package service

import (
	"errors"
	"fmt"
	"strings"
)

// Коды Bybit, означающие "значение уже такое".
const (
	retCodeLeverageNotModified = 110043
	retCodeTPSLNotModified     = 34040
)

// APIError отказ биржи (retCode != 0).
type APIError struct {
	Op      string
	RetCode int
	RetMsg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bybit %s: retCode=%d retMsg=%s", e.Op, e.RetCode, e.RetMsg)
}

// IsNotModified отказ вида "ничего не изменилось" — для идемпотентных вызовов это успех.
func IsNotModified(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.RetCode {
	case retCodeLeverageNotModified, retCodeTPSLNotModified:
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.RetMsg), "not modified")
}

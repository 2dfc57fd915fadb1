package models

import "time"

// Action торговое действие движка.
type Action string

const (
	ActionOpen   Action = "OPEN"
	ActionReduce Action = "REDUCE"
	ActionFlip   Action = "FLIP"
	ActionClose  Action = "CLOSE"
	ActionTPSL   Action = "TPSL"
)

// ActionEvent запись аудита о реально отправленном ордере.
type ActionEvent struct {
	Action   Action
	Symbol   string
	Side     Side
	Quantity float64
	ClientID string
	TP       *float64
	SL       *float64
	Err      error
	At       time.Time
}

// Outcome итог SyncSymbol по символу за цикл.
type Outcome string

const (
	OutcomeIgnored      Outcome = "ignored"
	OutcomeCooldown     Outcome = "cooldown"
	OutcomeGuardBlocked Outcome = "guard_blocked"
	OutcomeBelowMinimum Outcome = "below_minimum"
	OutcomeInSync       Outcome = "in_sync"
	OutcomeOpened       Outcome = "opened"
	OutcomeReduced      Outcome = "reduced"
	OutcomeClosed       Outcome = "closed"
	OutcomeFlat         Outcome = "flat"
	OutcomeFailed       Outcome = "failed"
)

// SyncResult результат синхронизации одного символа.
type SyncResult struct {
	Symbol   string
	Outcome  Outcome
	Quantity float64
	Err      error
}

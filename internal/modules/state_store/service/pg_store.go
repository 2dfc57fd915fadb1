package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"mirror_bot/pkg/db"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS mirror_symbol_state (
	symbol     TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (symbol, key)
)`

	selectAllSQL = `SELECT symbol, key, value::text FROM mirror_symbol_state`

	upsertSQL = `INSERT INTO mirror_symbol_state (symbol, key, value, updated_at)
VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (symbol, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
)

// PgStore то же состояние в Postgres: кэш в памяти, запись подтверждается транзакцией.
type PgStore struct {
	tx db.TxManager

	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewPgStore(ctx context.Context, tx db.TxManager) (*PgStore, error) {
	s := &PgStore{
		tx:   tx,
		data: make(map[string]map[string]any),
	}

	if _, err := tx.Conn().Exec(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("PgStore create table: %w", err)
	}

	rows, err := tx.Conn().Query(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("PgStore load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbol, key, raw string
		if err := rows.Scan(&symbol, &key, &raw); err != nil {
			return nil, fmt.Errorf("PgStore scan: %w", err)
		}
		var v any
		if err := sonic.UnmarshalString(raw, &v); err != nil {
			return nil, fmt.Errorf("PgStore decode %s/%s: %w", symbol, key, err)
		}
		row, ok := s.data[symbol]
		if !ok {
			row = make(map[string]any)
			s.data[symbol] = row
		}
		row[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("PgStore rows: %w", err)
	}
	return s, nil
}

func (s *PgStore) Get(symbol, key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.data, symbol, key, def)
}

func (s *PgStore) Set(ctx context.Context, symbol, key string, value any) error {
	raw, err := sonic.MarshalString(value)
	if err != nil {
		return fmt.Errorf("PgStore encode: %w", err)
	}

	err = s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, upsertSQL, symbol, key, raw)
		return err
	})
	if err != nil {
		return fmt.Errorf("PgStore.Set %s/%s: %w", symbol, key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.data[symbol]
	if !ok {
		row = make(map[string]any)
		s.data[symbol] = row
	}
	row[key] = value
	return nil
}

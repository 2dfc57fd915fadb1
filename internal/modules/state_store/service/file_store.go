package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// FileStore состояние символов одним JSON-документом.
// Загружается один раз, перезаписывается целиком на каждый Set.
type FileStore struct {
	file string

	mu   sync.RWMutex
	data map[string]map[string]any
}

func NewFileStore(file string) (*FileStore, error) {
	s := &FileStore{
		file: file,
		data: make(map[string]map[string]any),
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read state file")
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := sonic.Unmarshal(raw, &s.data); err != nil {
		return nil, errors.Wrapf(err, "decode state file %s", file)
	}
	if s.data == nil {
		s.data = make(map[string]map[string]any)
	}
	return s, nil
}

func (s *FileStore) Get(symbol, key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.data, symbol, key, def)
}

func (s *FileStore) Set(_ context.Context, symbol, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.data[symbol]
	if !ok {
		row = make(map[string]any)
		s.data[symbol] = row
	}
	row[key] = value

	return s.flush()
}

// Symbols известные символы (для health/диагностики).
func (s *FileStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for sym := range s.data {
		out = append(out, sym)
	}
	return out
}

// flush пишет во временный файл и переименовывает, чтобы не оставить полдокумента.
func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return errors.Wrap(err, "create state dir")
	}
	body, err := sonic.ConfigStd.MarshalIndent(s.data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	tmp := s.file + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open temp state file")
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write state")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "sync state")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close state")
	}
	return errors.Wrap(os.Rename(tmp, s.file), "replace state file")
}

func lookup(data map[string]map[string]any, symbol, key string, def any) any {
	row, ok := data[symbol]
	if !ok {
		return def
	}
	v, ok := row[key]
	if !ok || v == nil {
		return def
	}
	return v
}

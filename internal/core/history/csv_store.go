package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"recipe-assistant/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	recentsFile   = "recents.csv"
	favoritesFile = "favorites.csv"
)

var _ LogStore = (*CSVStore)(nil)

// CSVStore 以分號分隔的檔案保存紀錄，寫入以互斥鎖序列化
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

// NewCSVStore 創建檔案紀錄儲存
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) path(kind Kind) string {
	if kind == KindFavorite {
		return filepath.Join(s.dir, favoritesFile)
	}
	return filepath.Join(s.dir, recentsFile)
}

// Append 附加一筆紀錄，新檔案會先寫入標題列
func (s *CSVStore) Append(ctx context.Context, kind Kind, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(kind), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat history file: %w", err)
	}

	w := newWriter(f)
	if info.Size() == 0 {
		if err := w.Write(columnsFor(kind)); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := w.Write(e.record(kind)); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush history file: %w", err)
	}
	return f.Sync()
}

// ScanAll 讀取全部紀錄，檔案不存在時回傳空清單
func (s *CSVStore) ScanAll(ctx context.Context, kind Kind) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(h)] = i
	}

	entries := []Entry{}
	for row := 1; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history row %d: %w", row, err)
		}
		e, err := parseRecord(rec, columns)
		if err != nil {
			common.LogWarn("紀錄格式錯誤，已略過",
				zap.String("file", s.path(kind)),
				zap.Int("row", row),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// RewriteAll 先寫入暫存檔再改名，取代整個檔案
func (s *CSVStore) RewriteAll(ctx context.Context, kind Kind, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+string(kind)+"-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := newWriter(tmp)
	if err := w.Write(columnsFor(kind)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write(e.record(kind)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(kind)); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	return cw
}

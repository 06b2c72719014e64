package recipe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	"go.uber.org/zap"
)

// Source 食譜資料來源
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// 欄位名稱與可接受的別名
var columnAliases = map[string][]string{
	"id":          {"id"},
	"title":       {"titulo", "title"},
	"category":    {"categoria", "category"},
	"difficulty":  {"dificuldade", "difficulty"},
	"duration":    {"tempo_total", "tempo", "duration"},
	"calories":    {"calorias", "calories"},
	"rating":      {"rating", "avaliacao"},
	"servings":    {"porcoes", "servings", "doses"},
	"ingredients": {"ingredientes", "ingredients"},
	"steps":       {"passos", "steps", "preparacao"},
	"dietary":     {"criterios", "dietary_tags"},
	"image":       {"imagem", "image_url", "image"},
}

var requiredColumns = []string{"title", "ingredients", "steps"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource 以分號分隔的 CSV 食譜檔案
type CSVSource struct {
	Path string
}

// NewCSVSource 創建 CSV 資料來源
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load 讀取並解析整個檔案
func (s *CSVSource) Load(ctx context.Context) (*Snapshot, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, common.Wrap(common.ErrDatasetUnavailable, fmt.Errorf("failed to open dataset %s: %w", s.Path, err))
	}
	defer f.Close()

	return ParseCSV(ctx, f, s.Path)
}

// ParseCSV 解析食譜 CSV，個別格式錯誤的列會以預設值處理而不會中斷載入
func ParseCSV(ctx context.Context, r io.Reader, source string) (*Snapshot, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, common.Wrap(common.ErrDatasetUnavailable, fmt.Errorf("failed to read dataset header: %w", err))
	}

	columns := resolveColumns(header)
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, common.Wrap(common.ErrDatasetUnavailable, fmt.Errorf("dataset %s is missing column %q", source, name))
		}
	}

	var recipes []Recipe
	skipped := 0
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				common.LogWarn("資料列格式錯誤，已略過",
					zap.String("source", source),
					zap.Int("row", row),
					zap.Error(err),
				)
				continue
			}
			return nil, common.Wrap(common.ErrDatasetUnavailable, fmt.Errorf("failed to read dataset row %d: %w", row, err))
		}

		if isBlank(record) {
			continue
		}
		recipes = append(recipes, parseRow(record, columns, row))
	}

	snap := NewSnapshot(recipes, source, time.Now())
	common.LogInfo("資料集已載入",
		zap.String("source", source),
		zap.Int("recipes", snap.Len()),
		zap.Int("skipped_rows", skipped),
	)
	return snap, nil
}

// resolveColumns 建立欄位名稱到索引的對應
func resolveColumns(header []string) map[string]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[normalize.Fold(strings.Trim(h, "\" "))] = i
	}

	columns := make(map[string]int, len(columnAliases))
	for key, aliases := range columnAliases {
		for _, alias := range aliases {
			if idx, ok := byName[alias]; ok {
				columns[key] = idx
				break
			}
		}
	}
	return columns
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseRow 將一列轉為食譜，無法解析的欄位使用預設值
func parseRow(record []string, columns map[string]int, row int) Recipe {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	r := Recipe{
		ID:             field("id"),
		Title:          strings.TrimSpace(strings.Trim(field("title"), "\"")),
		CategoryText:   field("category"),
		DifficultyText: field("difficulty"),
		DurationText:   field("duration"),
		Rating:         normalize.ParseRating(field("rating")),
		Servings:       normalize.ParseServings(field("servings")),
		ImageURL:       field("image"),
		Ingredients:    normalize.SplitMultiValue(field("ingredients")),
		Steps:          normalize.SplitMultiValue(field("steps")),
	}
	if r.ID == "" {
		r.ID = strconv.Itoa(row)
	}

	if c, ok := ParseCategory(r.CategoryText); ok {
		r.Category = c
	} else if r.CategoryText != "" {
		common.LogWarn("無法對應食譜分類",
			zap.String("id", r.ID),
			zap.String("category", r.CategoryText),
		)
	}
	if d, ok := ParseDifficulty(r.DifficultyText); ok {
		r.Difficulty = d
	} else if r.DifficultyText != "" {
		common.LogWarn("無法對應食譜難度",
			zap.String("id", r.ID),
			zap.String("difficulty", r.DifficultyText),
		)
	}

	if minutes, ok := normalize.ParseDurationMinutes(r.DurationText); ok {
		r.DurationMinutes = IntPtr(minutes)
	}
	if kcal, ok := normalize.ParseCalories(field("calories")); ok {
		r.Calories = IntPtr(kcal)
	}

	for _, raw := range normalize.SplitMultiValue(field("dietary")) {
		tag, _ := ParseDietaryTag(raw)
		if tag != "" {
			r.DietaryTags = append(r.DietaryTags, tag)
		}
	}

	r.Prepare()
	return r
}

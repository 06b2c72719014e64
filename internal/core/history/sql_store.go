package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"recipe-assistant/internal/pkg/common"
	"recipe-assistant/internal/pkg/normalize"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register sqlite as database/sql driver
)

// Dialect SQL 後端種類
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// goose 的設定是全域的
var migrateMu sync.Mutex

const entryColumns = "logged_at, recipe_id, title, category, difficulty, duration_text, duration_minutes, " +
	"calories, dataset_rating, dietary_tags, ingredients, steps, user_rating"

// OpenDB 開啟資料庫連線並測試
func OpenDB(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("history dsn is empty")
	}

	driver := "pgx"
	if dialect == DialectSQLite {
		driver = "sqlite"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// 單一連線避免 SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate 套用內嵌的 goose 遷移
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	gooseDialect, dir := "postgres", "migrations/postgres"
	if dialect == DialectSQLite {
		gooseDialect, dir = "sqlite3", "migrations/sqlite"
	}

	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	common.LogInfo("紀錄資料表遷移完成", zap.String("dialect", string(dialect)))
	return nil
}

var _ LogStore = (*SQLStore)(nil)

// SQLStore 以單一資料表保存兩種紀錄
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore 創建 SQL 紀錄儲存
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// rebind 將 ? 佔位符轉為 postgres 的 $n
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const insertEntry = "INSERT INTO interaction_log (kind, " + entryColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) insert(ctx context.Context, ex execer, kind Kind, e Entry) error {
	rating := e.UserRating
	if kind == KindFavorite {
		rating = nil
	}
	_, err := ex.ExecContext(ctx, s.rebind(insertEntry),
		string(kind),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.RecipeID,
		e.Title,
		e.Category,
		e.Difficulty,
		e.DurationText,
		nullInt(e.DurationMinutes),
		nullInt(e.Calories),
		e.DatasetRating,
		normalize.JoinMultiValue(e.DietaryTags),
		normalize.JoinMultiValue(e.Ingredients),
		normalize.JoinMultiValue(e.Steps),
		nullInt(rating),
	)
	return err
}

// Append 附加一筆紀錄
func (s *SQLStore) Append(ctx context.Context, kind Kind, e Entry) error {
	if err := s.insert(ctx, s.db, kind, e); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// ScanAll 依寫入順序讀取全部紀錄
func (s *SQLStore) ScanAll(ctx context.Context, kind Kind) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+entryColumns+" FROM interaction_log WHERE kind = ? ORDER BY id"),
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                         Entry
			loggedAt                  string
			tags, ingredients, steps  string
			minutes, calories, rating sql.NullInt64
		)
		if err := rows.Scan(&loggedAt, &e.RecipeID, &e.Title, &e.Category, &e.Difficulty, &e.DurationText,
			&minutes, &calories, &e.DatasetRating, &tags, &ingredients, &steps, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			common.LogWarn("紀錄時間格式錯誤，已略過",
				zap.String("recipe_id", e.RecipeID),
				zap.String("logged_at", loggedAt),
			)
			continue
		}
		e.Timestamp = ts
		e.DurationMinutes = intPtr(minutes)
		e.Calories = intPtr(calories)
		e.UserRating = intPtr(rating)
		e.DietaryTags = normalize.SplitMultiValue(tags)
		e.Ingredients = normalize.SplitMultiValue(ingredients)
		e.Steps = normalize.SplitMultiValue(steps)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// RewriteAll 在交易內以新清單取代該種類的全部紀錄
func (s *SQLStore) RewriteAll(ctx context.Context, kind Kind, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM interaction_log WHERE kind = ?"), string(kind)); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	for _, e := range entries {
		if err := s.insert(ctx, tx, kind, e); err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

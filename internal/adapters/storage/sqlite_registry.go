package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rmartins/repowatch/internal/domain"
	"github.com/rmartins/repowatch/internal/logging"
	"github.com/rmartins/repowatch/internal/ports"
)

// SQLiteRegistry implements ports.RepositoryRegistry using GORM
type SQLiteRegistry struct {
	db *gorm.DB
}

// Verify interface compliance at compile time
var _ ports.RepositoryRegistry = (*SQLiteRegistry)(nil)

// gormLogger bridges GORM logging into the repowatch logger
type gormLogger struct {
	level logger.LogLevel
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{level: level}
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		logging.Logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		logging.Logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		logging.Logger.Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level < logger.Info {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logging.Logger.Error("gorm query error",
			"error", err,
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else if elapsed > 200*time.Millisecond {
		logging.Logger.Warn("slow query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	} else {
		logging.Logger.Debug("gorm query",
			"duration", elapsed,
			"sql", sql,
			"rows", rows,
		)
	}
}

func newGormLogger() logger.Interface {
	if os.Getenv("REPOWATCH_DEBUG") == "1" {
		return (&gormLogger{}).LogMode(logger.Info)
	}
	return (&gormLogger{}).LogMode(logger.Silent)
}

// NewSQLiteRegistry opens (or creates) the repository database at dbPath.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	// Expand home directory if present
	if len(dbPath) > 0 && dbPath[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, dbPath[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		PrepareStmt: false,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for concurrent access
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&RepositoryModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate repository schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

// Add registers a new repository. A duplicate path surfaces as
// domain.ErrRepositoryExists.
func (r *SQLiteRegistry) Add(ctx context.Context, repo domain.Repository) error {
	model := fromDomain(repo)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return domain.ErrRepositoryExists
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrRepositoryExists
		}
		return fmt.Errorf("failed to add repository: %w", err)
	}
	return nil
}

// Get returns one repository by id.
func (r *SQLiteRegistry) Get(ctx context.Context, id string) (*domain.Repository, error) {
	var model RepositoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRepositoryNotFound
		}
		return nil, fmt.Errorf("failed to load repository: %w", err)
	}
	repo := toDomain(model)
	return &repo, nil
}

// List returns all repositories in registration order.
func (r *SQLiteRegistry) List(ctx context.Context) ([]domain.Repository, error) {
	var models []RepositoryModel
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	repos := make([]domain.Repository, 0, len(models))
	for _, m := range models {
		repos = append(repos, toDomain(m))
	}
	return repos, nil
}

// ListEnabled returns enabled repositories in registration order.
func (r *SQLiteRegistry) ListEnabled(ctx context.Context) ([]domain.Repository, error) {
	var models []RepositoryModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled repositories: %w", err)
	}
	repos := make([]domain.Repository, 0, len(models))
	for _, m := range models {
		repos = append(repos, toDomain(m))
	}
	return repos, nil
}

// Delete removes a repository registration.
func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&RepositoryModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRepositoryNotFound
	}
	return nil
}

// SetEnabled flips the enabled flag.
func (r *SQLiteRegistry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return r.updateColumns(ctx, id, map[string]any{"enabled": enabled})
}

// SetFetchInterval updates the per-repository fetch interval.
func (r *SQLiteRegistry) SetFetchInterval(ctx context.Context, id string, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("fetch interval must be positive")
	}
	return r.updateColumns(ctx, id, map[string]any{"fetch_interval_ms": interval.Milliseconds()})
}

// SaveFetchResult persists the fetch outcome onto the repository row.
func (r *SQLiteRegistry) SaveFetchResult(ctx context.Context, result domain.FetchResult) error {
	state := domain.FetchStateSuccess
	errText := ""
	if !result.Success {
		state = domain.FetchStateError
		if result.Err != nil {
			errText = result.Err.Error()
		}
	}
	return r.updateColumns(ctx, result.RepositoryID, map[string]any{
		"last_fetch_at":    result.FetchedAt,
		"last_fetch_state": string(state),
		"last_fetch_error": errText,
	})
}

// LastFetch returns the persisted fetch metadata for one repository.
func (r *SQLiteRegistry) LastFetch(ctx context.Context, id string) (domain.FetchMetadata, error) {
	var model RepositoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.FetchMetadata{}, domain.ErrRepositoryNotFound
		}
		return domain.FetchMetadata{}, fmt.Errorf("failed to load fetch metadata: %w", err)
	}
	return fetchMetadataFromModel(model), nil
}

// Close closes the underlying database connection.
func (r *SQLiteRegistry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLiteRegistry) updateColumns(ctx context.Context, id string, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&RepositoryModel{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update repository: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrRepositoryNotFound
	}
	return nil
}

package mysql

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"sync"
	"time"

	xerrors "ChainSentry/internal/errors"
	"ChainSentry/internal/incubation"
)

// AppRecord 表示生成应用及其最近一次观测的落库结构。
type AppRecord struct {
	App     incubation.App     `json:"app"`
	Metrics incubation.Metrics `json:"metrics"`
}

// AppRepository 抽象生成应用的持久化接口。
type AppRepository interface {
	Save(ctx context.Context, record AppRecord) error
	FindByID(ctx context.Context, appID string) (*AppRecord, error)
	ListByStatus(ctx context.Context, status incubation.Status) ([]AppRecord, error)
}

// MemoryAppRepository 把应用状态保存在进程内。
type MemoryAppRepository struct {
	mu   sync.RWMutex
	byID map[string]AppRecord
}

// NewMemoryAppRepository 创建内存应用仓库。
func NewMemoryAppRepository() *MemoryAppRepository {
	return &MemoryAppRepository{byID: make(map[string]AppRecord)}
}

var _ AppRepository = (*MemoryAppRepository)(nil)

// Save 保存或覆盖应用状态。
func (m *MemoryAppRepository) Save(_ context.Context, record AppRecord) error {
	if record.App.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "app id 不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[record.App.ID] = record
	return nil
}

// FindByID 按 app id 查询。
func (m *MemoryAppRepository) FindByID(_ context.Context, appID string) (*AppRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.byID[appID]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, "应用不存在",
			xerrors.WithMetadata("app_id", appID))
	}
	return &record, nil
}

// ListByStatus 返回处于给定状态的全部应用。
func (m *MemoryAppRepository) ListByStatus(_ context.Context, status incubation.Status) ([]AppRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []AppRecord
	for _, record := range m.byID {
		if record.App.Status == status {
			results = append(results, record)
		}
	}
	return results, nil
}

// SQLAppRepository 使用 MySQL 记录应用状态。
type SQLAppRepository struct {
	db *sql.DB
}

// NewSQLAppRepository 建立连接并确保表结构就绪。
func NewSQLAppRepository(ctx context.Context, cfg Config) (*SQLAppRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化应用仓库失败")
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移失败")
	}
	return &SQLAppRepository{db: db}, nil
}

var _ AppRepository = (*SQLAppRepository)(nil)

// Save 落库应用状态。
func (s *SQLAppRepository) Save(ctx context.Context, record AppRecord) error {
	if record.App.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "app id 不能为空")
	}
	const query = `INSERT INTO generated_apps
        (id, name, status, started_at, revenue_share_bps, users, revenue_usd, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE status = VALUES(status),
        revenue_share_bps = VALUES(revenue_share_bps), users = VALUES(users),
        revenue_usd = VALUES(revenue_usd), updated_at = VALUES(updated_at)`
	if _, err := s.db.ExecContext(ctx, query,
		record.App.ID, record.App.Name, string(record.App.Status), record.App.StartedAt.Unix(),
		record.App.RevenueShareBps, record.Metrics.Users, record.Metrics.RevenueUSD,
		record.App.UpdatedAt.Unix()); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存应用状态失败")
	}
	return nil
}

// FindByID 按 app id 查询。
func (s *SQLAppRepository) FindByID(ctx context.Context, appID string) (*AppRecord, error) {
	const query = `SELECT id, name, status, started_at, revenue_share_bps, users, revenue_usd, updated_at
        FROM generated_apps WHERE id = ?`
	record, err := scanAppRecord(s.db.QueryRowContext(ctx, query, appID))
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(xerrors.CodeNotFound, "应用不存在",
				xerrors.WithMetadata("app_id", appID))
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询应用失败")
	}
	return record, nil
}

// ListByStatus 返回处于给定状态的全部应用。
func (s *SQLAppRepository) ListByStatus(ctx context.Context, status incubation.Status) ([]AppRecord, error) {
	const query = `SELECT id, name, status, started_at, revenue_share_bps, users, revenue_usd, updated_at
        FROM generated_apps WHERE status = ?`
	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询应用列表失败")
	}
	defer rows.Close()

	var results []AppRecord
	for rows.Next() {
		record, err := scanAppRecord(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析应用记录失败")
		}
		results = append(results, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历应用记录失败")
	}
	return results, nil
}

// Close 释放数据库连接池。
func (s *SQLAppRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppRecord(row rowScanner) (*AppRecord, error) {
	var record AppRecord
	var status string
	var startedAt, updatedAt int64
	if err := row.Scan(&record.App.ID, &record.App.Name, &status, &startedAt,
		&record.App.RevenueShareBps, &record.Metrics.Users, &record.Metrics.RevenueUSD,
		&updatedAt); err != nil {
		return nil, err
	}
	record.App.Status = incubation.Status(status)
	record.App.StartedAt = time.Unix(startedAt, 0).UTC()
	record.App.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &record, nil
}

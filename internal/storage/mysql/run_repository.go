package mysql

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"sync"

	xerrors "ChainSentry/internal/errors"
)

// RunRecord 表示一次风险评估运行的落库结构。
type RunRecord struct {
	RunID       string `json:"run_id"`
	ChainID     string `json:"chain_id"`
	ToAddress   string `json:"to_address"`
	Severity    string `json:"severity"`
	Score       int    `json:"score"`
	Decision    string `json:"decision"`
	Action      string `json:"action"`
	ReportCount int    `json:"report_count"`
	ReportsJSON string `json:"reports_json"`
	CreatedAt   int64  `json:"created_at"`
}

// RunRepository 抽象运行结果的持久化接口。
type RunRepository interface {
	Save(ctx context.Context, record RunRecord) error
	FindByID(ctx context.Context, runID string) (*RunRecord, error)
	ListLatest(ctx context.Context, limit int) ([]RunRecord, error)
}

// MemoryRunRepository 把运行结果保存在进程内,用于测试与本地开发。
type MemoryRunRepository struct {
	mu      sync.RWMutex
	byID    map[string]RunRecord
	ordered []string
}

// NewMemoryRunRepository 创建内存运行仓库。
func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{byID: make(map[string]RunRecord)}
}

var _ RunRepository = (*MemoryRunRepository)(nil)

// Save 保存运行结果。重复的 run id 覆盖旧记录。
func (m *MemoryRunRepository) Save(_ context.Context, record RunRecord) error {
	if record.RunID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "run id 不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[record.RunID]; !exists {
		m.ordered = append(m.ordered, record.RunID)
	}
	m.byID[record.RunID] = record
	return nil
}

// FindByID 按 run id 查询。
func (m *MemoryRunRepository) FindByID(_ context.Context, runID string) (*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.byID[runID]
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, "运行记录不存在",
			xerrors.WithMetadata("run_id", runID))
	}
	return &record, nil
}

// ListLatest 返回最近的运行记录,按写入顺序倒序。
func (m *MemoryRunRepository) ListLatest(_ context.Context, limit int) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.ordered) {
		limit = len(m.ordered)
	}
	results := make([]RunRecord, 0, limit)
	for i := len(m.ordered) - 1; i >= 0 && len(results) < limit; i-- {
		results = append(results, m.byID[m.ordered[i]])
	}
	return results, nil
}

// SQLRunRepository 使用 MySQL 记录运行结果。
type SQLRunRepository struct {
	db *sql.DB
}

// NewSQLRunRepository 建立连接并确保表结构就绪。
func NewSQLRunRepository(ctx context.Context, cfg Config) (*SQLRunRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "初始化运行仓库失败")
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行迁移失败")
	}
	return &SQLRunRepository{db: db}, nil
}

var _ RunRepository = (*SQLRunRepository)(nil)

// Save 落库一条运行记录。
func (s *SQLRunRepository) Save(ctx context.Context, record RunRecord) error {
	if record.RunID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "run id 不能为空")
	}
	const query = `INSERT INTO swarm_runs
        (run_id, chain_id, to_address, severity, score, decision, action, report_count, reports_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE severity = VALUES(severity), score = VALUES(score),
        decision = VALUES(decision), action = VALUES(action),
        report_count = VALUES(report_count), reports_json = VALUES(reports_json)`
	if _, err := s.db.ExecContext(ctx, query,
		record.RunID, record.ChainID, record.ToAddress, record.Severity, record.Score,
		record.Decision, record.Action, record.ReportCount, record.ReportsJSON, record.CreatedAt); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "保存运行记录失败")
	}
	return nil
}

// FindByID 按 run id 查询。
func (s *SQLRunRepository) FindByID(ctx context.Context, runID string) (*RunRecord, error) {
	const query = `SELECT run_id, chain_id, to_address, severity, score, decision, action,
        report_count, reports_json, created_at FROM swarm_runs WHERE run_id = ?`
	row := s.db.QueryRowContext(ctx, query, runID)
	var record RunRecord
	if err := row.Scan(&record.RunID, &record.ChainID, &record.ToAddress, &record.Severity,
		&record.Score, &record.Decision, &record.Action, &record.ReportCount,
		&record.ReportsJSON, &record.CreatedAt); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(xerrors.CodeNotFound, "运行记录不存在",
				xerrors.WithMetadata("run_id", runID))
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询运行记录失败")
	}
	return &record, nil
}

// ListLatest 返回最近的运行记录,按创建时间倒序。
func (s *SQLRunRepository) ListLatest(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT run_id, chain_id, to_address, severity, score, decision, action,
        report_count, reports_json, created_at FROM swarm_runs
        ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询运行记录失败")
	}
	defer rows.Close()

	var results []RunRecord
	for rows.Next() {
		var record RunRecord
		if err := rows.Scan(&record.RunID, &record.ChainID, &record.ToAddress, &record.Severity,
			&record.Score, &record.Decision, &record.Action, &record.ReportCount,
			&record.ReportsJSON, &record.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析运行记录失败")
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历运行记录失败")
	}
	return results, nil
}

// Close 释放数据库连接池。
func (s *SQLRunRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

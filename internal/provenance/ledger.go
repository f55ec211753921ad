package provenance

import (
	"context"
	"sync"
)

// Ledger 负责把溯源记录写入持久账本,并返回锚点描述。
type Ledger interface {
	Append(ctx context.Context, record *Record) (anchor string, err error)
}

// MemoryLedger 把记录保存在进程内,用于测试与本地开发。
type MemoryLedger struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemoryLedger 创建内存账本。
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

var _ Ledger = (*MemoryLedger)(nil)

// Append 保存记录并返回序号锚点。
func (l *MemoryLedger) Append(_ context.Context, record *Record) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	clone := *record
	l.records = append(l.records, &clone)
	return "memory:" + clone.ID, nil
}

// Records 返回已保存记录的副本。
func (l *MemoryLedger) Records() []*Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Record, 0, len(l.records))
	for _, r := range l.records {
		clone := *r
		out = append(out, &clone)
	}
	return out
}

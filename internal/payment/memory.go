package payment

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	defaultTTL      = 24 * time.Hour
	defaultCapacity = 10000
	// pruneKeepRatio 决定容量触顶后保留的比例。
	pruneKeepRatio = 0.8
)

// MemoryGuard 是进程内的重放防护实现,适合单实例部署与测试。
// 条目按过期时间组织,容量触顶时优先剔除最接近过期的条目。
type MemoryGuard struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]time.Time
	now      func() time.Time
}

// MemoryOption 定义内存防护的可选配置。
type MemoryOption func(*MemoryGuard)

// WithTTL 覆盖默认的 24 小时过期窗口。
func WithTTL(ttl time.Duration) MemoryOption {
	return func(g *MemoryGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithCapacity 覆盖默认的条目上限。
func WithCapacity(capacity int) MemoryOption {
	return func(g *MemoryGuard) {
		if capacity > 0 {
			g.capacity = capacity
		}
	}
}

// WithNow 注入时钟,用于测试过期与修剪行为。
func WithNow(now func() time.Time) MemoryOption {
	return func(g *MemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewMemoryGuard 创建内存版重放防护。
func NewMemoryGuard(opts ...MemoryOption) *MemoryGuard {
	g := &MemoryGuard{
		ttl:      defaultTTL,
		capacity: defaultCapacity,
		entries:  make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Guard = (*MemoryGuard)(nil)

// IsUsed 查询引用是否已被消费。过期条目视为未消费并被顺手清掉。
func (g *MemoryGuard) IsUsed(_ context.Context, ref string) (bool, error) {
	key := NormalizeRef(ref)
	if key == "" {
		return false, ErrEmptyRef
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	expiry, ok := g.entries[key]
	if !ok {
		return false, nil
	}
	if !g.now().Before(expiry) {
		delete(g.entries, key)
		return false, nil
	}
	return true, nil
}

// Claim 原子地声明引用。查重与写入在同一把锁内完成,
// 并发的同名声明只有一个返回 true。
func (g *MemoryGuard) Claim(_ context.Context, ref string) (bool, error) {
	key := NormalizeRef(ref)
	if key == "" {
		return false, ErrEmptyRef
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.sweepLocked(now)
	if _, ok := g.entries[key]; ok {
		return false, nil
	}
	g.entries[key] = now.Add(g.ttl)
	if len(g.entries) > g.capacity {
		g.pruneLocked()
	}
	return true, nil
}

// Release 释放一次声明。
func (g *MemoryGuard) Release(_ context.Context, ref string) error {
	key := NormalizeRef(ref)
	if key == "" {
		return ErrEmptyRef
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}

// Size 返回当前条目数,仅用于监控与测试。
func (g *MemoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// sweepLocked 清理已过期的条目。调用方必须持有锁。
func (g *MemoryGuard) sweepLocked(now time.Time) {
	for key, expiry := range g.entries {
		if !now.Before(expiry) {
			delete(g.entries, key)
		}
	}
}

// pruneLocked 将条目数压回容量的 80%,优先剔除最早过期的条目。
// 未过期条目只有在容量压力下才会被提前移除。调用方必须持有锁。
func (g *MemoryGuard) pruneLocked() {
	target := int(float64(g.capacity) * pruneKeepRatio)
	if len(g.entries) <= target {
		return
	}
	type entry struct {
		key    string
		expiry time.Time
	}
	ordered := make([]entry, 0, len(g.entries))
	for key, expiry := range g.entries {
		ordered = append(ordered, entry{key: key, expiry: expiry})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].expiry.Before(ordered[j].expiry)
	})
	for _, victim := range ordered[:len(ordered)-target] {
		delete(g.entries, victim.key)
	}
}

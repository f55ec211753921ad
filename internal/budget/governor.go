package budget

import (
	"fmt"
	"sync"
	"time"
)

// Reason 是预算裁决的机器可读原因码。预算拒绝是类型化的"不允许"结果，
// 不是错误。
type Reason string

const (
	ReasonOK            Reason = "OK"
	ReasonInvalidAmount Reason = "INVALID_AMOUNT"
	ReasonPerAppCap     Reason = "PER_APP_CAP_EXCEEDED"
	ReasonDailyCap      Reason = "GLOBAL_BURN_LIMIT_EXCEEDED"
	ReasonTreasury      Reason = "TREASURY_EXHAUSTED"
)

// Verdict 是一次预算检查的结果。
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// Config 描述预算上限。
type Config struct {
	TreasuryUSD  float64 `json:"treasury_usd"`
	DailyCapUSD  float64 `json:"daily_cap_usd"`
	PerAppCapUSD float64 `json:"per_app_cap_usd"`
}

// State 是预算账本的一个只读快照。
type State struct {
	TreasuryUSD  float64 `json:"treasury_usd"`
	DailyBurnUSD float64 `json:"daily_burn_usd"`
	BurnDate     string  `json:"burn_date"`
}

// Governor 维护金库余额与当日燃烧额，并对每一笔支出做检查。实例由构造函数
// 显式持有，生产环境在进程启动时装配一个共享实例，不依赖包级全局变量。
type Governor struct {
	mu        sync.Mutex
	cfg       Config
	treasury  float64
	dailyBurn float64
	burnDate  string
	now       func() time.Time
}

// Option 定义可选配置。
type Option func(*Governor)

// WithClock 注入时钟，主要用于测试日期翻转。
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGovernor 创建预算治理器。
func NewGovernor(cfg Config, opts ...Option) *Governor {
	g := &Governor{
		cfg:      cfg,
		treasury: cfg.TreasuryUSD,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.burnDate = g.now().Format("2006-01-02")
	return g
}

// CanAllocate 检查一笔支出是否被允许，不做任何状态变更。
func (g *Governor) CanAllocate(amountUSD float64) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.checkLocked(amountUSD)
}

// RecordSpend 在同一个临界区内重新校验并记账。这是 Governor 状态的唯一
// 变更入口，保证并发请求不会联手突破上限。
func (g *Governor) RecordSpend(amountUSD float64) Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()

	verdict := g.checkLocked(amountUSD)
	if !verdict.Allowed {
		return verdict
	}
	g.dailyBurn += amountUSD
	g.treasury -= amountUSD
	return verdict
}

// Snapshot 返回账本当前状态。
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return State{
		TreasuryUSD:  g.treasury,
		DailyBurnUSD: g.dailyBurn,
		BurnDate:     g.burnDate,
	}
}

// rolloverLocked 在自然日切换时清零当日燃烧额。调用方必须持有锁。
func (g *Governor) rolloverLocked() {
	today := g.now().Format("2006-01-02")
	if today != g.burnDate {
		g.dailyBurn = 0
		g.burnDate = today
	}
}

// checkLocked 按固定顺序执行三级校验：单应用上限、全局日燃烧上限、金库余额。
// 调用方必须持有锁。
func (g *Governor) checkLocked(amountUSD float64) Verdict {
	if amountUSD <= 0 {
		return Verdict{Reason: ReasonInvalidAmount, Detail: "amount must be positive"}
	}
	if g.cfg.PerAppCapUSD > 0 && amountUSD > g.cfg.PerAppCapUSD {
		return Verdict{
			Reason: ReasonPerAppCap,
			Detail: fmt.Sprintf("requested %.2f exceeds per-app cap %.2f", amountUSD, g.cfg.PerAppCapUSD),
		}
	}
	if g.cfg.DailyCapUSD > 0 && g.dailyBurn+amountUSD > g.cfg.DailyCapUSD {
		return Verdict{
			Reason: ReasonDailyCap,
			Detail: fmt.Sprintf("daily burn %.2f + %.2f exceeds cap %.2f", g.dailyBurn, amountUSD, g.cfg.DailyCapUSD),
		}
	}
	if amountUSD > g.treasury {
		return Verdict{
			Reason: ReasonTreasury,
			Detail: fmt.Sprintf("requested %.2f exceeds remaining treasury %.2f", amountUSD, g.treasury),
		}
	}
	return Verdict{Allowed: true, Reason: ReasonOK}
}

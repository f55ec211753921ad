package incubation

import (
	"fmt"
	"time"
)

// Config 描述孵化评估的阈值与时间窗口。
type Config struct {
	// WindowDays 是孵化窗口长度(天)。窗口内不达标即放弃。
	WindowDays int `json:"window_days"`
	// MaturityDays 是移交前的最短运营时长(天)。
	MaturityDays int `json:"maturity_days"`
	// MinUsers 与 MinRevenueUSD 是达标线,任一不达标即视为不达标。
	MinUsers      int     `json:"min_users"`
	MinRevenueUSD float64 `json:"min_revenue_usd"`
	// RevenueShareBps 是移交时协议保留的固定分成(基点)。
	RevenueShareBps int `json:"revenue_share_bps"`
}

// applyDefaults 补齐未配置的字段。
func (c *Config) applyDefaults() {
	if c.WindowDays <= 0 {
		c.WindowDays = 14
	}
	if c.MaturityDays <= 0 {
		c.MaturityDays = 30
	}
	if c.MinUsers <= 0 {
		c.MinUsers = 50
	}
	if c.MinRevenueUSD <= 0 {
		c.MinRevenueUSD = 10
	}
	if c.RevenueShareBps <= 0 {
		c.RevenueShareBps = 500
	}
}

// Decision 是一次评估的结果。
type Decision struct {
	NextStatus Status `json:"next_status"`
	Reason     string `json:"reason"`
	// RevenueShareBps 仅在移交时非零。
	RevenueShareBps int `json:"revenue_share_bps,omitempty"`
}

// Evaluator 按阈值与时间窗口推进应用状态。
type Evaluator struct {
	cfg Config
	now func() time.Time
}

// EvaluatorOption 定义评估器的可选配置。
type EvaluatorOption func(*Evaluator)

// WithNow 注入时钟,用于测试窗口与移交时点。
func WithNow(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEvaluator 创建孵化评估器。
func NewEvaluator(cfg Config, opts ...EvaluatorOption) *Evaluator {
	cfg.applyDefaults()
	e := &Evaluator{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 根据当前观测推进应用状态。终态应用原样返回,不再评估。
func (e *Evaluator) Evaluate(app *App, metrics Metrics) Decision {
	if app.Status.IsTerminal() {
		return Decision{
			NextStatus: app.Status,
			Reason:     "terminal status is never re-evaluated",
		}
	}

	age := e.now().Sub(app.StartedAt)
	window := time.Duration(e.cfg.WindowDays) * 24 * time.Hour
	maturity := time.Duration(e.cfg.MaturityDays) * 24 * time.Hour
	meets := metrics.Users >= e.cfg.MinUsers && metrics.RevenueUSD >= e.cfg.MinRevenueUSD

	if !meets {
		return Decision{
			NextStatus: StatusDropped,
			Reason: fmt.Sprintf("below thresholds: users %d/%d, revenue %.2f/%.2f",
				metrics.Users, e.cfg.MinUsers, metrics.RevenueUSD, e.cfg.MinRevenueUSD),
		}
	}
	if age > window && age > maturity {
		return Decision{
			NextStatus:      StatusHandedToUser,
			Reason:          fmt.Sprintf("supported past maturity period of %d days", e.cfg.MaturityDays),
			RevenueShareBps: e.cfg.RevenueShareBps,
		}
	}
	return Decision{
		NextStatus: StatusSupported,
		Reason: fmt.Sprintf("meets thresholds: users %d, revenue %.2f",
			metrics.Users, metrics.RevenueUSD),
	}
}

// Apply 把评估结果写回应用。移交时记录分成。
func Apply(app *App, decision Decision, at time.Time) {
	app.Status = decision.NextStatus
	app.UpdatedAt = at
	if decision.NextStatus == StatusHandedToUser && decision.RevenueShareBps > 0 {
		app.RevenueShareBps = decision.RevenueShareBps
	}
}

package budget

import "fmt"

// CheckResult 是部署门禁中单项检查的结果。
type CheckResult struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DeployDecision 汇总一次部署申请的全部预算检查。
type DeployDecision struct {
	Checks []CheckResult `json:"checks"`
	Deploy bool          `json:"deploy"`
	Reason Reason        `json:"reason"`
}

// 检查项标签。
const (
	CheckPerAppCap      = "perAppCap"
	CheckGlobalBurn     = "globalBurnLimit"
	CheckTreasuryRemain = "treasuryRemaining"
)

// EvaluateDeploy 对一笔部署预算逐项出具检查结果。与 CanAllocate 不同，它不会
// 在第一个失败处短路，而是给出每项检查的独立结论，便于审计展示。
func (g *Governor) EvaluateDeploy(amountUSD float64) DeployDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()

	decision := DeployDecision{Deploy: true, Reason: ReasonOK}
	appendCheck := func(label string, passed bool, detail string, reason Reason) {
		decision.Checks = append(decision.Checks, CheckResult{Label: label, Passed: passed, Detail: detail})
		if !passed && decision.Deploy {
			decision.Deploy = false
			decision.Reason = reason
		}
	}

	perAppOK := g.cfg.PerAppCapUSD <= 0 || amountUSD <= g.cfg.PerAppCapUSD
	appendCheck(CheckPerAppCap, perAppOK,
		detailf(!perAppOK, "requested %.2f exceeds per-app cap %.2f", amountUSD, g.cfg.PerAppCapUSD),
		ReasonPerAppCap)

	dailyOK := g.cfg.DailyCapUSD <= 0 || g.dailyBurn+amountUSD <= g.cfg.DailyCapUSD
	appendCheck(CheckGlobalBurn, dailyOK,
		detailf(!dailyOK, "daily burn %.2f + %.2f exceeds cap %.2f", g.dailyBurn, amountUSD, g.cfg.DailyCapUSD),
		ReasonDailyCap)

	treasuryOK := amountUSD <= g.treasury
	appendCheck(CheckTreasuryRemain, treasuryOK,
		detailf(!treasuryOK, "requested %.2f exceeds remaining treasury %.2f", amountUSD, g.treasury),
		ReasonTreasury)

	if amountUSD <= 0 {
		decision.Deploy = false
		decision.Reason = ReasonInvalidAmount
	}
	return decision
}

func detailf(failed bool, format string, args ...any) string {
	if !failed {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

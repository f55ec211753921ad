package consensus

import (
	"time"

	"ChainSentry/internal/risk"
)

// Decision 是共识裁决的枚举值。
type Decision string

const (
	DecisionAllow          Decision = "ALLOW"
	DecisionBlock          Decision = "BLOCK"
	DecisionReviewRequired Decision = "REVIEW_REQUIRED"
)

// IsValidDecision 检查裁决是否为支持的枚举值。
func IsValidDecision(d Decision) bool {
	switch d {
	case DecisionAllow, DecisionBlock, DecisionReviewRequired:
		return true
	default:
		return false
	}
}

// Verdict 是一次评估运行的聚合裁决，由专家报告确定性地推导，不可变。
type Verdict struct {
	RunID     string        `json:"run_id"`
	Severity  risk.Severity `json:"severity"`
	Score     int           `json:"score"`
	Decision  Decision      `json:"decision"`
	CreatedAt int64         `json:"created_at"`
}

// Compute 将专家报告集合聚合为一个裁决。算法取所有报告中的最大严重程度与
// 最大分值（最坏情形占优，单个高置信度红旗不会被一致的安全报告稀释），因此
// 对报告排列不敏感。协调者报告由调用方负责排除。
func Compute(runID string, reports []*risk.Report) Verdict {
	severity := risk.SeverityLow
	score := 0
	for _, report := range reports {
		if report == nil {
			continue
		}
		severity = risk.MaxSeverity(severity, report.Severity)
		if report.Score > score {
			score = report.Score
		}
	}

	return Verdict{
		RunID:     runID,
		Severity:  severity,
		Score:     score,
		Decision:  decisionFor(severity),
		CreatedAt: time.Now().Unix(),
	}
}

// decisionFor 把最终严重程度映射为裁决：CRITICAL/HIGH 拦截，MEDIUM 人工复核，
// LOW 放行。
func decisionFor(severity risk.Severity) Decision {
	switch severity {
	case risk.SeverityCritical, risk.SeverityHigh:
		return DecisionBlock
	case risk.SeverityMedium:
		return DecisionReviewRequired
	default:
		return DecisionAllow
	}
}

package governance

import (
	"fmt"
	"strings"
)

// CheckResult 是一个策略探针的输出。
type CheckResult struct {
	Label  string `json:"label"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// 探针标签。
const (
	CheckTreasuryRisk   = "treasuryRisk"
	CheckParameterShift = "parameterShift"
	CheckUrgencyPattern = "urgencyPattern"
)

// probe 用关键词集合描述一个策略探针。命中任一关键词即判为不通过。
type probe struct {
	label    string
	keywords []string
}

// 探针按固定顺序执行,结果顺序稳定,便于审计比对。
var probes = []probe{
	{
		label:    CheckTreasuryRisk,
		keywords: []string{"treasury", "fund transfer", "drain", "mint", "withdraw"},
	},
	{
		label:    CheckParameterShift,
		keywords: []string{"upgrade", "parameter", "quorum", "admin key", "proxy"},
	},
	{
		label:    CheckUrgencyPattern,
		keywords: []string{"urgent", "immediately", "act now", "emergency", "last chance"},
	},
}

// RunPolicyChecks 对提案文本执行全部探针。匹配大小写不敏感。
func RunPolicyChecks(text string) []CheckResult {
	lowered := strings.ToLower(text)
	results := make([]CheckResult, 0, len(probes))
	for _, p := range probes {
		hit := ""
		for _, kw := range p.keywords {
			if strings.Contains(lowered, kw) {
				hit = kw
				break
			}
		}
		if hit == "" {
			results = append(results, CheckResult{
				Label:  p.label,
				Passed: true,
				Detail: "no risk keywords detected",
			})
			continue
		}
		results = append(results, CheckResult{
			Label:  p.label,
			Passed: false,
			Detail: fmt.Sprintf("matched keyword %q", hit),
		})
	}
	return results
}

// FailedCount 统计未通过的探针数。
func FailedCount(results []CheckResult) int {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	return failed
}

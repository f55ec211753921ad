package risk

import (
	"context"
	"fmt"
	"strings"
)

// ReputationSource 是声誉查询的只读外部能力。查询失败不会中断评估，智能体
// 会降级为低置信度报告。
type ReputationSource interface {
	// Lookup 返回目标地址的声誉标签；未收录返回 (Listing{}, false, nil)。
	Lookup(ctx context.Context, address string) (Listing, bool, error)
}

// Listing 描述声誉库中一条地址记录。
type Listing struct {
	Address string   `yaml:"address"`
	Label   string   `yaml:"label"`
	Tags    []string `yaml:"tags"`
}

// IsScam 判断记录是否带有诈骗标记。
func (l Listing) IsScam() bool {
	return l.hasTag("scam") || l.hasTag("phishing") || l.hasTag("drainer")
}

// IsSuspicious 判断记录是否带有可疑标记。
func (l Listing) IsSuspicious() bool {
	return l.hasTag("suspicious") || l.hasTag("mixer")
}

func (l Listing) hasTag(tag string) bool {
	for _, t := range l.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// 声誉风险的权重。
const (
	reputationBaseScore = 5

	scamDestinationWeight       = 70
	suspiciousDestinationWeight = 30
	drainerPatternWeight        = 15
)

// ReputationAgent 根据声誉库判断交易目标是否为已知诈骗或可疑地址。
type ReputationAgent struct {
	id     string
	source ReputationSource
}

// NewReputationAgent 创建声誉智能体。source 为 nil 时智能体退化为无信号报告。
func NewReputationAgent(source ReputationSource) *ReputationAgent {
	return &ReputationAgent{id: "scam-reputation", source: source}
}

// ID 实现 Agent 接口。
func (a *ReputationAgent) ID() string { return a.id }

// Kind 实现 Agent 接口。
func (a *ReputationAgent) Kind() Kind { return KindReputation }

// Evaluate 查询目标地址的声誉并评分。
func (a *ReputationAgent) Evaluate(ctx context.Context, tx *InputTx) (*Report, error) {
	if tx == nil || a.source == nil {
		draft := newDraft(a.id, KindReputation, reputationBaseScore, unavailableConfidence)
		draft.reasons = append(draft.reasons, "no reputation source configured")
		return draft.seal(), nil
	}

	listing, found, err := a.source.Lookup(ctx, tx.To.Hex())
	if err != nil {
		// 能力失败按降级处理：输出低置信度报告而不是让整个评估失败。
		draft := newDraft(a.id, KindReputation, reputationBaseScore, degradedConfidence)
		draft.reasons = append(draft.reasons, fmt.Sprintf("reputation lookup failed: %v", err))
		return draft.seal(), nil
	}

	draft := newDraft(a.id, KindReputation, reputationBaseScore, strongConfidence)
	if !found {
		draft.reasons = append(draft.reasons, "destination not listed")
		return draft.seal(), nil
	}

	draft.note("listing_label", listing.Label)
	if listing.IsScam() {
		draft.add(scamDestinationWeight, SeverityCritical,
			fmt.Sprintf("destination flagged as scam: %s", listing.Label))
		draft.recommend(RecommendBlock)
		if tx.HasValue() {
			draft.add(drainerPatternWeight, SeverityCritical, "native value transfer to flagged address")
		}
		return draft.seal(), nil
	}
	if listing.IsSuspicious() {
		draft.add(suspiciousDestinationWeight, SeverityMedium,
			fmt.Sprintf("destination flagged as suspicious: %s", listing.Label))
		draft.recommend(RecommendReview)
	}
	return draft.seal(), nil
}

var _ Agent = (*ReputationAgent)(nil)

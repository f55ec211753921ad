package risk

import (
	"context"
	"fmt"
)

// 协调者的评分权重。
const (
	coordinatorBaseScore = 0

	unanimousBlockWeight = 20
	splitVerdictWeight   = 10
)

// CoordinatorAgent 在所有专家智能体完成评估后复核它们的报告：一致的高风险
// 结论会被强化，分歧会被降级为人工复核建议。它只读取同行报告，从不修改。
type CoordinatorAgent struct {
	id string
}

// NewCoordinatorAgent 创建协调者智能体。
func NewCoordinatorAgent() *CoordinatorAgent {
	return &CoordinatorAgent{id: "coordinator"}
}

// ID 实现 Agent 接口。
func (a *CoordinatorAgent) ID() string { return a.id }

// Kind 实现 Agent 接口。
func (a *CoordinatorAgent) Kind() Kind { return KindCoordinator }

// Evaluate 在没有同行报告时退化为无信号评估。
func (a *CoordinatorAgent) Evaluate(ctx context.Context, tx *InputTx) (*Report, error) {
	return a.EvaluateWithPeers(ctx, tx, nil)
}

// EvaluateWithPeers 实现 PeerAware 接口。
func (a *CoordinatorAgent) EvaluateWithPeers(_ context.Context, _ *InputTx, peers []*Report) (*Report, error) {
	if len(peers) == 0 {
		draft := newDraft(a.id, KindCoordinator, coordinatorBaseScore, unavailableConfidence)
		draft.reasons = append(draft.reasons, "no peer reports to review")
		return draft.seal(), nil
	}

	blocks, reviews, maxScore := 0, 0, 0
	for _, peer := range peers {
		if peer == nil {
			continue
		}
		switch peer.Recommendation {
		case RecommendBlock:
			blocks++
		case RecommendReview:
			reviews++
		}
		if peer.Score > maxScore {
			maxScore = peer.Score
		}
	}

	draft := newDraft(a.id, KindCoordinator, maxScore, heuristicConfidence)
	draft.note("peer_count", fmt.Sprintf("%d", len(peers)))
	draft.note("peer_blocks", fmt.Sprintf("%d", blocks))

	switch {
	case blocks >= 2:
		// 多个维度独立得出 BLOCK，视为强一致信号。
		draft.add(unanimousBlockWeight, SeverityCritical, "multiple specialists independently recommend block")
		draft.recommend(RecommendBlock)
		draft.confidence = strongConfidence
	case blocks == 1:
		draft.add(splitVerdictWeight, SeverityHigh, "single specialist recommends block, peers disagree")
		draft.recommend(RecommendReview)
	case reviews > 0:
		draft.add(0, SeverityMedium, "specialists request manual review")
		draft.recommend(RecommendReview)
	default:
		draft.reasons = append(draft.reasons, "specialists agree the transaction is safe")
	}

	return draft.seal(), nil
}

var (
	_ Agent     = (*CoordinatorAgent)(nil)
	_ PeerAware = (*CoordinatorAgent)(nil)
)

package risk

import (
	"context"
	"fmt"
	"math/big"
)

// approveSelector 是 ERC-20 approve(address,uint256) 的函数选择器。
var approveSelector = [4]byte{0x09, 0x5e, 0xa7, 0xb3}

// unlimitedApprovalFloor 之上的授权额度按无限授权处理（2^200）。
var unlimitedApprovalFloor = new(big.Int).Lsh(big.NewInt(1), 200)

// 授权与会话密钥风险的权重。
const (
	approvalBaseScore = 5

	unlimitedApprovalWeight = 45
	largeApprovalWeight     = 25
	unknownSpenderWeight    = 15
	freshSessionKeyWeight   = 35
	youngSessionKeyWeight   = 20

	freshSessionKeyHours = 1.0
	youngSessionKeyHours = 24.0
)

// largeApprovalFloor 之上的授权额度视为大额授权（10^24，约一百万枚 18 位代币）。
var largeApprovalFloor = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)

// ApprovalAgent 评估授权滥用与会话密钥风险：无限/大额 approve、陌生 spender、
// 过新的会话密钥都会提高分值。
type ApprovalAgent struct {
	id string
}

// NewApprovalAgent 创建授权风险智能体。
func NewApprovalAgent() *ApprovalAgent {
	return &ApprovalAgent{id: "approval-session"}
}

// ID 实现 Agent 接口。
func (a *ApprovalAgent) ID() string { return a.id }

// Kind 实现 Agent 接口。
func (a *ApprovalAgent) Kind() Kind { return KindApproval }

// Evaluate 检查授权额度、spender 与会话密钥年龄。
func (a *ApprovalAgent) Evaluate(_ context.Context, tx *InputTx) (*Report, error) {
	if tx == nil {
		draft := newDraft(a.id, KindApproval, approvalBaseScore, degradedConfidence)
		draft.reasons = append(draft.reasons, "no transaction signal")
		return draft.seal(), nil
	}

	confidence := heuristicConfidence
	isApproveCall := tx.CallSelector() == approveSelector
	if !isApproveCall && tx.Meta.ApprovalAmount == nil && !tx.Meta.SessionKeyAgeHours.Valid {
		confidence = degradedConfidence
	}

	draft := newDraft(a.id, KindApproval, approvalBaseScore, confidence)
	if isApproveCall {
		draft.note("call", "erc20_approve")
	}

	if amount := tx.Meta.ApprovalAmount; amount != nil {
		draft.note("approval_amount", amount.String())
		switch {
		case amount.Cmp(unlimitedApprovalFloor) >= 0:
			draft.add(unlimitedApprovalWeight, SeverityHigh, "unlimited token approval requested")
			draft.recommend(RecommendReview)
		case amount.Cmp(largeApprovalFloor) >= 0:
			draft.add(largeApprovalWeight, SeverityMedium, "unusually large token approval requested")
		}
		if tx.Meta.SpenderKnown.Valid && !tx.Meta.SpenderKnown.Value {
			draft.add(unknownSpenderWeight, SeverityMedium, "approval spender is not a known contract")
		}
	}

	if age := tx.Meta.SessionKeyAgeHours; age.Valid {
		draft.note("session_key_age_hours", fmt.Sprintf("%.2f", age.Value))
		switch {
		case age.Value < freshSessionKeyHours:
			draft.add(freshSessionKeyWeight, SeverityHigh, "session key created less than an hour ago")
			draft.recommend(RecommendReview)
		case age.Value < youngSessionKeyHours:
			draft.add(youngSessionKeyWeight, SeverityMedium, "session key is less than a day old")
		}
	}

	if draft.severity.Rank() >= SeverityHigh.Rank() && draft.rec == RecommendAllow {
		draft.recommend(RecommendReview)
	}
	return draft.seal(), nil
}

var _ Agent = (*ApprovalAgent)(nil)

package governance

import (
	"context"
	"time"

	xerrors "ChainSentry/internal/errors"
)

// Vote 是对一个提案的投票立场。
type Vote string

const (
	VoteFor     Vote = "FOR"
	VoteAgainst Vote = "AGAINST"
	VoteAbstain Vote = "ABSTAIN"
)

// 各立场对应的固定置信度(基点)。
const (
	confidenceAgainst = 9000
	confidenceAbstain = 5000
	confidenceFor     = 7000
)

// VoteIntent 是最终的投票建议。
type VoteIntent struct {
	ProposalID string        `json:"proposal_id"`
	Vote       Vote          `json:"vote"`
	Confidence int           `json:"confidence"`
	Checks     []CheckResult `json:"checks"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ProposalSource 提供提案正文。实现可以对接链上治理合约或索引服务。
type ProposalSource interface {
	ProposalText(ctx context.Context, proposalID string) (string, error)
}

// Advisor 把策略探针的结果聚合为投票建议。
type Advisor struct {
	source ProposalSource
}

// NewAdvisor 创建投票顾问。
func NewAdvisor(source ProposalSource) *Advisor {
	return &Advisor{source: source}
}

// RecommendVote 拉取提案正文并给出投票建议。提案不存在时返回 NotFound。
// 聚合规则:不通过的探针 ≥2 反对,=1 弃权,=0 赞成。
func (a *Advisor) RecommendVote(ctx context.Context, proposalID string) (*VoteIntent, error) {
	if proposalID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "proposal id 不能为空")
	}
	text, err := a.source.ProposalText(ctx, proposalID)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeCapabilityFailure, err, "获取提案正文失败")
	}
	checks := RunPolicyChecks(text)
	intent := &VoteIntent{
		ProposalID: proposalID,
		Checks:     checks,
		CreatedAt:  time.Now().UTC(),
	}
	switch failed := FailedCount(checks); {
	case failed >= 2:
		intent.Vote = VoteAgainst
		intent.Confidence = confidenceAgainst
	case failed == 1:
		intent.Vote = VoteAbstain
		intent.Confidence = confidenceAbstain
	default:
		intent.Vote = VoteFor
		intent.Confidence = confidenceFor
	}
	return intent, nil
}

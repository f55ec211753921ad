package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ChainSentry/internal/incubation"
	"ChainSentry/internal/risk"
)

// evaluationRequest 是提交评估的请求体。数值型金额一律使用十进制字符串,
// 避免 JSON number 的精度问题。
type evaluationRequest struct {
	ChainID  int64              `json:"chain_id"`
	From     string             `json:"from"`
	To       string             `json:"to"`
	Value    string             `json:"value"`
	Data     string             `json:"data"`
	Metadata evaluationMetadata `json:"metadata"`
}

// evaluationMetadata 对应 risk.Metadata,指针字段表达"未提供"。
type evaluationMetadata struct {
	HealthFactor       *float64 `json:"health_factor,omitempty"`
	CollateralRatio    *float64 `json:"collateral_ratio,omitempty"`
	ApprovalAmount     string   `json:"approval_amount,omitempty"`
	SessionKeyAgeHours *float64 `json:"session_key_age_hours,omitempty"`
	SpenderKnown       *bool    `json:"spender_known,omitempty"`
}

// toInputTx 把请求体转换为内部交易结构。缺失字段保持"无信号"状态。
func (r *evaluationRequest) toInputTx() (*risk.InputTx, error) {
	tx := &risk.InputTx{
		From: common.HexToAddress(r.From),
		To:   common.HexToAddress(r.To),
	}
	if r.ChainID > 0 {
		tx.ChainID = big.NewInt(r.ChainID)
	}
	if r.Value != "" {
		value, ok := new(big.Int).SetString(r.Value, 10)
		if !ok {
			return nil, fmt.Errorf("value %q 不是合法的十进制整数", r.Value)
		}
		tx.Value = value
	}
	if r.Data != "" {
		tx.Data = common.FromHex(r.Data)
	}

	if r.Metadata.HealthFactor != nil {
		tx.Meta.HealthFactor = risk.Float(*r.Metadata.HealthFactor)
	}
	if r.Metadata.CollateralRatio != nil {
		tx.Meta.CollateralRatio = risk.Float(*r.Metadata.CollateralRatio)
	}
	if r.Metadata.ApprovalAmount != "" {
		amount, ok := new(big.Int).SetString(r.Metadata.ApprovalAmount, 10)
		if !ok {
			return nil, fmt.Errorf("approval_amount %q 不是合法的十进制整数", r.Metadata.ApprovalAmount)
		}
		tx.Meta.ApprovalAmount = amount
	}
	if r.Metadata.SessionKeyAgeHours != nil {
		tx.Meta.SessionKeyAgeHours = risk.Float(*r.Metadata.SessionKeyAgeHours)
	}
	if r.Metadata.SpenderKnown != nil {
		tx.Meta.SpenderKnown = risk.Bool(*r.Metadata.SpenderKnown)
	}
	return tx, nil
}

// voteRequest 请求一次投票建议。
type voteRequest struct {
	ProposalID string `json:"proposal_id"`
}

// spendRequest 描述一笔预算请求。
type spendRequest struct {
	AmountUSD float64 `json:"amount_usd"`
}

// paymentRequest 描述一次支付消费。
type paymentRequest struct {
	Reference string `json:"reference"`
}

// paymentResponse 是支付消费的结果。
type paymentResponse struct {
	Status string `json:"status"`
}

// appEvaluationRequest 提交一次应用表现评估。
type appEvaluationRequest struct {
	AppID   string             `json:"app_id"`
	Metrics incubation.Metrics `json:"metrics"`
}

// appEvaluationResponse 返回状态推进结果。
type appEvaluationResponse struct {
	App      incubation.App      `json:"app"`
	Decision incubation.Decision `json:"decision"`
}

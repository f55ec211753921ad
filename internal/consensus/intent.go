package consensus

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"ChainSentry/internal/risk"
)

// Action 是裁决推导出的具体动作指令。
type Action string

const (
	ActionExecuteTx       Action = "EXECUTE_TX"
	ActionBlockTx         Action = "BLOCK_TX"
	ActionRevokeApproval  Action = "REVOKE_APPROVAL"
	ActionUsePrivateRelay Action = "USE_PRIVATE_RELAY"
	ActionNoop            Action = "NOOP"
)

// IntentMode 选择 REVIEW_REQUIRED 裁决的映射方式。上游存在两套并行约定，
// 这里将其显式建模为配置项而不是私下合并。
type IntentMode string

const (
	// IntentModeRevokeApproval 在需要复核且风险偏高时撤销既有授权（默认）。
	IntentModeRevokeApproval IntentMode = "revoke_approval"
	// IntentModePrivateRelay 将待复核交易改道私有中继以规避公开内存池。
	IntentModePrivateRelay IntentMode = "private_relay"
)

// IsValidIntentMode 检查映射模式是否受支持。
func IsValidIntentMode(mode IntentMode) bool {
	return mode == IntentModeRevokeApproval || mode == IntentModePrivateRelay
}

// Intent 是一条不可变的动作指令，与产生它的裁决一一对应。
type Intent struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	Action    Action         `json:"action"`
	ChainID   *big.Int       `json:"chain_id,omitempty"`
	Target    common.Address `json:"target"`
	Value     *big.Int       `json:"value,omitempty"`
	Data      []byte         `json:"data,omitempty"`
	Severity  risk.Severity  `json:"severity"`
	Score     int            `json:"score"`
	CreatedAt int64          `json:"created_at"`
}

// IntentBuilder 将裁决映射为动作指令。映射是全函数：未知裁决值落到最安全的
// NOOP，永不报错。
type IntentBuilder struct {
	mode IntentMode
}

// NewIntentBuilder 创建指令构造器。非法模式回退为撤销授权模式。
func NewIntentBuilder(mode IntentMode) *IntentBuilder {
	if !IsValidIntentMode(mode) {
		mode = IntentModeRevokeApproval
	}
	return &IntentBuilder{mode: mode}
}

// Mode 返回当前的 REVIEW_REQUIRED 映射模式。
func (b *IntentBuilder) Mode() IntentMode { return b.mode }

// Build 根据裁决与原始交易生成动作指令。
func (b *IntentBuilder) Build(verdict Verdict, tx *risk.InputTx) *Intent {
	intent := &Intent{
		ID:        uuid.NewString(),
		RunID:     verdict.RunID,
		Action:    b.actionFor(verdict),
		Severity:  verdict.Severity,
		Score:     verdict.Score,
		CreatedAt: time.Now().Unix(),
	}
	if tx != nil {
		intent.ChainID = tx.ChainID
		intent.Target = tx.To
		intent.Value = tx.Value
		intent.Data = tx.Data
	}
	return intent
}

func (b *IntentBuilder) actionFor(verdict Verdict) Action {
	switch verdict.Decision {
	case DecisionAllow:
		return ActionExecuteTx
	case DecisionBlock:
		return ActionBlockTx
	case DecisionReviewRequired:
		if b.mode == IntentModePrivateRelay {
			return ActionUsePrivateRelay
		}
		if verdict.Severity.Rank() >= risk.SeverityHigh.Rank() {
			return ActionRevokeApproval
		}
		return ActionNoop
	default:
		// 未知裁决值回退到最安全的动作。
		return ActionNoop
	}
}

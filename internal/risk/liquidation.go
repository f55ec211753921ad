package risk

import (
	"context"
	"fmt"
)

// 借贷健康度的分档阈值与权重。阈值逐级收紧，命中的条件逐级累加。
const (
	healthFactorWatch    = 1.50
	healthFactorDanger   = 1.20
	healthFactorImminent = 1.05

	healthWatchWeight    = 15
	healthDangerWeight   = 35
	healthImminentWeight = 55

	collateralRatioFloor  = 1.10
	collateralRatioWeight = 20

	liquidationBaseScore = 10
)

// LiquidationAgent 评估借贷头寸的清算风险。健康因子来自交易元数据；缺失时
// 视为无信号并返回低置信度报告。
type LiquidationAgent struct {
	id string
}

// NewLiquidationAgent 创建清算健康度智能体。
func NewLiquidationAgent() *LiquidationAgent {
	return &LiquidationAgent{id: "liquidation-health"}
}

// ID 实现 Agent 接口。
func (a *LiquidationAgent) ID() string { return a.id }

// Kind 实现 Agent 接口。
func (a *LiquidationAgent) Kind() Kind { return KindLiquidation }

// Evaluate 根据健康因子分档评估清算风险。
func (a *LiquidationAgent) Evaluate(_ context.Context, tx *InputTx) (*Report, error) {
	if tx == nil || !tx.Meta.HealthFactor.Valid {
		draft := newDraft(a.id, KindLiquidation, liquidationBaseScore, degradedConfidence)
		draft.reasons = append(draft.reasons, "no lending position signal")
		return draft.seal(), nil
	}

	hf := tx.Meta.HealthFactor.Value
	draft := newDraft(a.id, KindLiquidation, liquidationBaseScore, strongConfidence)
	draft.note("health_factor", fmt.Sprintf("%.4f", hf))

	if hf < healthFactorWatch {
		draft.add(healthWatchWeight, SeverityMedium,
			fmt.Sprintf("health factor %.2f below watch threshold %.2f", hf, healthFactorWatch))
	}
	if hf < healthFactorDanger {
		draft.add(healthDangerWeight, SeverityHigh,
			fmt.Sprintf("health factor %.2f below danger threshold %.2f", hf, healthFactorDanger))
		draft.recommend(RecommendReview)
	}
	if hf < healthFactorImminent {
		draft.add(healthImminentWeight, SeverityCritical,
			fmt.Sprintf("liquidation imminent: health factor %.2f below %.2f", hf, healthFactorImminent))
		draft.recommend(RecommendBlock)
	}

	if tx.Meta.CollateralRatio.Valid && tx.Meta.CollateralRatio.Value < collateralRatioFloor {
		draft.add(collateralRatioWeight, SeverityMedium,
			fmt.Sprintf("collateral ratio %.2f below floor %.2f", tx.Meta.CollateralRatio.Value, collateralRatioFloor))
		draft.note("collateral_ratio", fmt.Sprintf("%.4f", tx.Meta.CollateralRatio.Value))
	}

	return draft.seal(), nil
}

var _ Agent = (*LiquidationAgent)(nil)

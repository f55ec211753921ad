package risk

import "context"

// Agent 定义了风险智能体的统一契约。Evaluate 是其输入与外部只读能力的纯函数：
// 不得修改共享状态，缺失的元数据字段视为"无信号"，不得因此失败。
type Agent interface {
	// ID 返回智能体的唯一标识。
	ID() string
	// Kind 返回智能体的类型标签。
	Kind() Kind
	// Evaluate 评估一笔交易并返回风险报告。
	Evaluate(ctx context.Context, tx *InputTx) (*Report, error)
}

// PeerAware 由协调者智能体实现，评估时可以读取（但不得修改）同行报告。
type PeerAware interface {
	Agent
	// EvaluateWithPeers 在同行报告的基础上复核本次交易。
	EvaluateWithPeers(ctx context.Context, tx *InputTx, peers []*Report) (*Report, error)
}

// UnavailableAgent 是"启发式能力暂缺"的显式占位实现：它始终给出低置信度的
// LOW/ALLOW 报告，使测试可以断言当前部署运行在哪个置信档位。
type UnavailableAgent struct {
	id   string
	kind Kind
}

// NewUnavailableAgent 创建占位智能体。kind 标记被占位的风险维度。
func NewUnavailableAgent(id string, kind Kind) *UnavailableAgent {
	if id == "" {
		id = "unavailable"
	}
	return &UnavailableAgent{id: id, kind: kind}
}

// ID 实现 Agent 接口。
func (a *UnavailableAgent) ID() string { return a.id }

// Kind 实现 Agent 接口。
func (a *UnavailableAgent) Kind() Kind { return KindUnavailable }

// Evaluate 返回固定的无信号报告。
func (a *UnavailableAgent) Evaluate(_ context.Context, _ *InputTx) (*Report, error) {
	draft := newDraft(a.id, KindUnavailable, 0, unavailableConfidence)
	draft.note("dimension", string(a.kind))
	draft.reasons = append(draft.reasons, "heuristic unavailable, no signal")
	return draft.seal(), nil
}

// 置信度档位（基点）。
const (
	unavailableConfidence = 1000
	degradedConfidence    = 2000
	heuristicConfidence   = 7500
	strongConfidence      = 9000
)

var _ Agent = (*UnavailableAgent)(nil)

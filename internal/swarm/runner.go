package swarm

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ChainSentry/internal/consensus"
	xerrors "ChainSentry/internal/errors"
	"ChainSentry/internal/observability/alerting"
	"ChainSentry/internal/provenance"
	"ChainSentry/internal/risk"
	"ChainSentry/internal/storage/mysql"
	"ChainSentry/pkg/logger"
)

const defaultAgentTimeout = 5 * time.Second

// Run 是一次完整评估的结果。Reports 按执行顺序排列,协调者报告在末尾。
type Run struct {
	RunID      string               `json:"run_id"`
	Reports    []*risk.Report       `json:"reports"`
	Verdict    consensus.Verdict    `json:"verdict"`
	Intent     *consensus.Intent    `json:"intent"`
	Provenance []*provenance.Record `json:"provenance,omitempty"`
}

// Runner 按固定顺序驱动智能体并聚合裁决。顺序执行保证审计轨迹可复现,
// 共识算法的排列不变性使并行化成为纯粹的性能选择。
type Runner struct {
	agents       []risk.Agent
	coordinator  risk.PeerAware
	intents      *consensus.IntentBuilder
	recorder     *provenance.Recorder
	runs         mysql.RunRepository
	alerts       alerting.Dispatcher
	agentTimeout time.Duration
}

// RunnerOption 定义编排器的可选配置。
type RunnerOption func(*Runner)

// WithCoordinator 注入协调者智能体。
func WithCoordinator(coordinator risk.PeerAware) RunnerOption {
	return func(r *Runner) { r.coordinator = coordinator }
}

// WithRecorder 注入溯源记录器。
func WithRecorder(recorder *provenance.Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = recorder }
}

// WithRunRepository 注入运行结果仓库。
func WithRunRepository(runs mysql.RunRepository) RunnerOption {
	return func(r *Runner) { r.runs = runs }
}

// WithAlerts 注入告警分发器,阻断裁决会触发告警。
func WithAlerts(alerts alerting.Dispatcher) RunnerOption {
	return func(r *Runner) { r.alerts = alerts }
}

// WithAgentTimeout 覆盖单个智能体的评估超时。
func WithAgentTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.agentTimeout = timeout
		}
	}
}

// NewRunner 创建编排器。agents 的注册顺序即执行顺序,新增智能体只需追加
// 列表项,无需改动编排逻辑。
func NewRunner(agents []risk.Agent, intents *consensus.IntentBuilder, opts ...RunnerOption) *Runner {
	r := &Runner{
		agents:       agents,
		intents:      intents,
		agentTimeout: defaultAgentTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.intents == nil {
		r.intents = consensus.NewIntentBuilder(consensus.IntentModeRevokeApproval)
	}
	return r
}

// RunSwarm 对一笔交易执行完整评估。智能体故障降级为跳过该报告,
// 溯源与落库失败只记日志,结果总是可用。
func (r *Runner) RunSwarm(ctx context.Context, tx *risk.InputTx) (*Run, error) {
	if tx == nil {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "待评估交易不能为空")
	}
	runID := uuid.NewString()
	log := logger.Named("swarm")

	specialists := make([]*risk.Report, 0, len(r.agents))
	for _, agent := range r.agents {
		report, err := r.evaluateOne(ctx, agent, tx)
		if err != nil {
			// 单个智能体故障不应中断评估,缺失的报告等价于无信号。
			log.Warn("智能体评估失败",
				"run_id", runID,
				"agent_id", agent.ID(),
				"error", err)
			continue
		}
		specialists = append(specialists, report)
	}

	reports := make([]*risk.Report, len(specialists))
	copy(reports, specialists)
	if r.coordinator != nil {
		coordReport, err := r.evaluateCoordinator(ctx, tx, specialists)
		if err != nil {
			log.Warn("协调者评估失败", "run_id", runID, "error", err)
		} else {
			reports = append(reports, coordReport)
		}
	}

	// 共识只聚合专家报告,协调者报告保留在审计轨迹中。
	verdict := consensus.Compute(runID, specialists)
	intent := r.intents.Build(verdict, tx)

	run := &Run{
		RunID:   runID,
		Reports: reports,
		Verdict: verdict,
		Intent:  intent,
	}
	if r.recorder != nil {
		run.Provenance = r.recorder.RecordAll(ctx, runID, reports)
	}
	r.persist(ctx, log, run, tx)
	r.alert(ctx, log, run)

	logger.Audit().Info("评估完成",
		"run_id", runID,
		"severity", verdict.Severity,
		"score", verdict.Score,
		"decision", verdict.Decision,
		"action", intent.Action,
		"reports", len(reports))
	return run, nil
}

// evaluateOne 在超时约束内执行单个智能体。
func (r *Runner) evaluateOne(ctx context.Context, agent risk.Agent, tx *risk.InputTx) (*risk.Report, error) {
	evalCtx, cancel := context.WithTimeout(ctx, r.agentTimeout)
	defer cancel()
	return agent.Evaluate(evalCtx, tx)
}

func (r *Runner) evaluateCoordinator(ctx context.Context, tx *risk.InputTx, peers []*risk.Report) (*risk.Report, error) {
	evalCtx, cancel := context.WithTimeout(ctx, r.agentTimeout)
	defer cancel()
	return r.coordinator.EvaluateWithPeers(evalCtx, tx, peers)
}

// alert 对阻断裁决发出告警。通知失败只记日志。
func (r *Runner) alert(ctx context.Context, log *slog.Logger, run *Run) {
	if r.alerts == nil || run.Verdict.Decision != consensus.DecisionBlock {
		return
	}
	event := alerting.Event{
		Code:       xerrors.CodeUnknown,
		Message:    "交易被阻断",
		Severity:   xerrors.SeverityCritical,
		RunID:      run.RunID,
		Decision:   string(run.Verdict.Decision),
		OccurredAt: time.Unix(run.Verdict.CreatedAt, 0),
		Metadata: map[string]string{
			"severity": string(run.Verdict.Severity),
			"action":   string(run.Intent.Action),
		},
	}
	if err := r.alerts.Notify(ctx, event); err != nil {
		log.Warn("告警发送失败", "run_id", run.RunID, "error", err)
	}
}

// persist 把运行结果落库。存储故障不影响调用方拿到结果。
func (r *Runner) persist(ctx context.Context, log *slog.Logger, run *Run, tx *risk.InputTx) {
	if r.runs == nil {
		return
	}
	reportsJSON, err := json.Marshal(run.Reports)
	if err != nil {
		log.Warn("运行报告序列化失败", "run_id", run.RunID, "error", err)
		reportsJSON = nil
	}
	record := mysql.RunRecord{
		RunID:       run.RunID,
		Severity:    string(run.Verdict.Severity),
		Score:       run.Verdict.Score,
		Decision:    string(run.Verdict.Decision),
		Action:      string(run.Intent.Action),
		ReportCount: len(run.Reports),
		ReportsJSON: string(reportsJSON),
		CreatedAt:   run.Verdict.CreatedAt,
	}
	if tx.ChainID != nil {
		record.ChainID = tx.ChainID.String()
	}
	record.ToAddress = tx.To.Hex()
	if err := r.runs.Save(ctx, record); err != nil {
		log.Warn("运行结果落库失败", "run_id", run.RunID, "error", err)
	}
}

package risk

import (
	"time"

	"github.com/google/uuid"
)

// Severity 表示风险等级，存在全序 LOW < MEDIUM < HIGH < CRITICAL。
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityRanks 定义了全序，未知取值按最低等级处理。
var severityRanks = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank 返回严重程度在全序中的位置。
func (s Severity) Rank() int {
	return severityRanks[s]
}

// IsValidSeverity 检查给定的严重程度是否为支持的枚举值。
func IsValidSeverity(s Severity) bool {
	_, ok := severityRanks[s]
	return ok
}

// MaxSeverity 返回两个严重程度中较高的一个。
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Recommendation 是单个智能体给出的处置建议。
type Recommendation string

const (
	RecommendAllow  Recommendation = "ALLOW"
	RecommendReview Recommendation = "REVIEW"
	RecommendBlock  Recommendation = "BLOCK"
)

// Kind 标记智能体的类型。
type Kind string

const (
	KindApproval    Kind = "approval"
	KindReputation  Kind = "reputation"
	KindLiquidation Kind = "liquidation"
	KindCoordinator Kind = "coordinator"
	KindUnavailable Kind = "unavailable"
)

// 评分边界与晋升阈值。
const (
	ScoreMax      = 100
	ScoreMin      = 0
	ConfidenceMax = 10000

	promoteHighAt     = 60
	promoteCriticalAt = 80
)

// Report 是单个智能体对一笔交易的判定结果，创建后不可变。
type Report struct {
	ID             string         `json:"id"`
	AgentID        string         `json:"agent_id"`
	AgentKind      Kind           `json:"agent_kind"`
	Score          int            `json:"score"`
	Confidence     int            `json:"confidence"`
	Severity       Severity       `json:"severity"`
	Recommendation Recommendation `json:"recommendation"`
	Reasons        []string       `json:"reasons,omitempty"`
	Evidence       map[string]string `json:"evidence,omitempty"`
	CreatedAt      int64          `json:"created_at"`
}

// reportDraft 在评估过程中累积评分与证据，最终通过 seal 固化为 Report。
type reportDraft struct {
	agentID    string
	kind       Kind
	score      int
	confidence int
	severity   Severity
	rec        Recommendation
	reasons    []string
	evidence   map[string]string
}

func newDraft(agentID string, kind Kind, baseScore, confidence int) *reportDraft {
	return &reportDraft{
		agentID:    agentID,
		kind:       kind,
		score:      baseScore,
		confidence: confidence,
		severity:   SeverityLow,
		rec:        RecommendAllow,
	}
}

// add 为检测到的风险条件累加加权分值，并按需提升严重程度。
func (d *reportDraft) add(points int, severity Severity, reason string) {
	d.score += points
	d.severity = MaxSeverity(d.severity, severity)
	if reason != "" {
		d.reasons = append(d.reasons, reason)
	}
}

func (d *reportDraft) note(key, value string) {
	if d.evidence == nil {
		d.evidence = make(map[string]string)
	}
	d.evidence[key] = value
}

func (d *reportDraft) recommend(rec Recommendation) {
	d.rec = rec
}

// seal 将草稿固化为不可变的 Report：分值裁剪到 [0,100]，并按统一阈值晋升
// 严重程度（score ≥ 60 至少 HIGH，score ≥ 80 至少 CRITICAL），与维度自身的
// 判定规则取最大值。
func (d *reportDraft) seal() *Report {
	score := d.score
	if score > ScoreMax {
		score = ScoreMax
	}
	if score < ScoreMin {
		score = ScoreMin
	}

	severity := d.severity
	if score >= promoteCriticalAt {
		severity = MaxSeverity(severity, SeverityCritical)
	} else if score >= promoteHighAt {
		severity = MaxSeverity(severity, SeverityHigh)
	}

	confidence := d.confidence
	if confidence > ConfidenceMax {
		confidence = ConfidenceMax
	}
	if confidence < 0 {
		confidence = 0
	}

	return &Report{
		ID:             uuid.NewString(),
		AgentID:        d.agentID,
		AgentKind:      d.kind,
		Score:          score,
		Confidence:     confidence,
		Severity:       severity,
		Recommendation: d.rec,
		Reasons:        append([]string(nil), d.reasons...),
		Evidence:       cloneEvidence(d.evidence),
		CreatedAt:      time.Now().Unix(),
	}
}

func cloneEvidence(evidence map[string]string) map[string]string {
	if len(evidence) == 0 {
		return nil
	}
	clone := make(map[string]string, len(evidence))
	for k, v := range evidence {
		clone[k] = v
	}
	return clone
}

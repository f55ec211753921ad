package provenance

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ChainSentry/internal/risk"
)

// Record 是一条溯源记录,对应一份 agent 风险报告。
type Record struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	ReportID string `json:"report_id"`
	AgentID  string `json:"agent_id"`
	// Digest 是报告内容的 SHA-256 摘要,十六进制编码。
	Digest string `json:"digest"`
	// Anchor 描述账本侧的锚点,例如区块号与区块哈希。未锚定时为空。
	Anchor string `json:"anchor,omitempty"`
	// Recorded 表示账本写入是否成功。写入失败的记录照常返回,
	// 调用方据此识别未被锚定的报告。
	Recorded  bool      `json:"recorded"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord 根据报告构造溯源记录。摘要覆盖报告的全部字段,
// 同一份报告总是得到同一个摘要。
func NewRecord(runID string, report *risk.Report) *Record {
	return &Record{
		ID:        uuid.NewString(),
		RunID:     runID,
		ReportID:  report.ID,
		AgentID:   report.AgentID,
		Digest:    digestReport(report),
		CreatedAt: time.Now().UTC(),
	}
}

func digestReport(report *risk.Report) string {
	payload, err := json.Marshal(report)
	if err != nil {
		// Report 只含可序列化字段,这里不会发生。
		payload = []byte(report.ID)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

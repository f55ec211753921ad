package provenance

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"ChainSentry/internal/risk"
	"ChainSentry/pkg/logger"
)

const defaultWriteTimeout = 3 * time.Second

// Recorder 把一次运行的全部报告转写成溯源记录。
// 记录是尽力而为的:单条失败只记日志,不影响其余记录,更不影响决策路径。
type Recorder struct {
	ledger  Ledger
	queue   Queue
	timeout time.Duration
}

// RecorderOption 定义记录器的可选配置。
type RecorderOption func(*Recorder)

// WithWriteTimeout 覆盖单条账本写入的超时。
func WithWriteTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// NewRecorder 创建溯源记录器。queue 可以为 nil,表示不广播。
func NewRecorder(ledger Ledger, queue Queue, opts ...RecorderOption) *Recorder {
	r := &Recorder{ledger: ledger, queue: queue, timeout: defaultWriteTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordAll 为每份报告写一条溯源记录。每份报告都有对应的返回条目,
// 写入失败的条目 Recorded 为 false,部分成功是正常结果。
func (r *Recorder) RecordAll(ctx context.Context, runID string, reports []*risk.Report) []*Record {
	log := logger.Named("provenance")
	records := make([]*Record, 0, len(reports))
	recorded := 0
	for _, report := range reports {
		record := NewRecord(runID, report)
		writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		anchor, err := r.ledger.Append(writeCtx, record)
		cancel()
		if err != nil {
			log.Warn("溯源记录写入失败",
				"run_id", runID,
				"report_id", report.ID,
				"error", err)
			records = append(records, record)
			continue
		}
		record.Anchor = anchor
		record.Recorded = true
		recorded++
		records = append(records, record)
		r.publish(ctx, log, record)
	}
	if recorded < len(reports) {
		log.Warn("溯源记录部分成功",
			"run_id", runID,
			"recorded", recorded,
			"total", len(reports))
	}
	return records
}

// publish 把记录广播到队列。投递受写超时约束,失败只记日志。
func (r *Recorder) publish(ctx context.Context, log *slog.Logger, record *Record) {
	if r.queue == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		log.Warn("溯源记录序列化失败", "record_id", record.ID, "error", err)
		return
	}
	publishCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.queue.Publish(publishCtx, string(payload)); err != nil {
		log.Warn("溯源记录广播失败", "record_id", record.ID, "error", err)
	}
}

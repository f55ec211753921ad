package payment

import (
	"context"

	xerrors "ChainSentry/internal/errors"
	"ChainSentry/pkg/logger"
)

// VerifyStatus 是支付校验的结果枚举。
type VerifyStatus string

const (
	// VerifyOK 表示支付有效且本次被成功消费。
	VerifyOK VerifyStatus = "OK"
	// VerifyInsufficientFunds 表示支付方余额不足或外部校验失败。
	VerifyInsufficientFunds VerifyStatus = "INSUFFICIENT_FUNDS"
	// VerifyReplayed 表示引用在 TTL 窗口内已被消费过。
	VerifyReplayed VerifyStatus = "REPLAYED"
)

// Verifier 是外部支付校验能力。实现可以是打桩、启发式或对接真实服务,
// 核心流程不依赖具体实现。
type Verifier interface {
	VerifyPayment(ctx context.Context, ref string) (VerifyStatus, error)
}

// VerifierFunc 让普通函数充当 Verifier。
type VerifierFunc func(ctx context.Context, ref string) (VerifyStatus, error)

// VerifyPayment 实现 Verifier。
func (f VerifierFunc) VerifyPayment(ctx context.Context, ref string) (VerifyStatus, error) {
	return f(ctx, ref)
}

// AcceptAllVerifier 无条件放行,用于测试与本地开发。
func AcceptAllVerifier() Verifier {
	return VerifierFunc(func(context.Context, string) (VerifyStatus, error) {
		return VerifyOK, nil
	})
}

// Processor 把外部校验与重放防护串成一次原子消费。
type Processor struct {
	verifier Verifier
	guard    Guard
}

// NewProcessor 创建支付处理器。
func NewProcessor(verifier Verifier, guard Guard) *Processor {
	return &Processor{verifier: verifier, guard: guard}
}

// Consume 校验并消费一个支付引用。一个引用在 TTL 窗口内至多被消费一次;
// 重放与余额不足都是带原因的正常结果,不是错误。
// 先原子地声明引用再做外部校验,并发的同名消费只有一个能拿到 OK,
// 校验未通过时释放声明,引用仍可被重试。
func (p *Processor) Consume(ctx context.Context, ref string) (VerifyStatus, error) {
	key := NormalizeRef(ref)
	if key == "" {
		return VerifyInsufficientFunds, ErrEmptyRef
	}
	claimed, err := p.guard.Claim(ctx, key)
	if err != nil {
		return VerifyInsufficientFunds, err
	}
	if !claimed {
		return VerifyReplayed, nil
	}
	status, err := p.verifier.VerifyPayment(ctx, key)
	if err != nil {
		p.release(ctx, key)
		// 外部校验失败按能力故障降级为余额不足,不中断调用方。
		return VerifyInsufficientFunds, xerrors.Wrap(xerrors.CodeCapabilityFailure, err, "支付校验失败")
	}
	if status != VerifyOK {
		p.release(ctx, key)
		return status, nil
	}
	return VerifyOK, nil
}

// release 回滚一次声明。释放失败只记日志,引用会随 TTL 自行过期。
func (p *Processor) release(ctx context.Context, key string) {
	if err := p.guard.Release(ctx, key); err != nil {
		logger.Named("payment").Warn("释放支付引用失败", "ref", key, "error", err)
	}
}

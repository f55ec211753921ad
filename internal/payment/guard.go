package payment

import (
	"context"
	"strings"

	xerrors "ChainSentry/internal/errors"
)

// Guard 记录已经消费过的支付引用，阻止重放。
type Guard interface {
	// IsUsed 查询引用是否已被消费。查询本身不改变状态。
	IsUsed(ctx context.Context, ref string) (bool, error)
	// Claim 原子地声明引用。返回 false 表示引用在 TTL 窗口内已被占用。
	// 声明与查重必须在同一个临界区内完成，并发的同名声明只有一个成功。
	Claim(ctx context.Context, ref string) (bool, error)
	// Release 释放一次声明，供声明后校验失败时回滚。释放不存在的引用不算错误。
	Release(ctx context.Context, ref string) error
}

// NormalizeRef 统一支付引用的书写形式：去除首尾空白并小写化。
// 空引用归一化后仍为空串，由调用方决定如何处理。
func NormalizeRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

// ErrEmptyRef 表示引用归一化后为空。
var ErrEmptyRef = xerrors.New(xerrors.CodeInvalidArgument, "payment reference is empty")

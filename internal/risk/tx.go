package risk

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FloatField 表示一个可选的数值型元数据字段。Valid 为 false 代表调用方未提供
// 该信号，各个智能体应将其视为"无信号"而不是错误。
type FloatField struct {
	Value float64
	Valid bool
}

// Float 构造一个已赋值的 FloatField。
func Float(v float64) FloatField {
	return FloatField{Value: v, Valid: true}
}

// BoolField 表示一个可选的布尔型元数据字段。
type BoolField struct {
	Value bool
	Valid bool
}

// Bool 构造一个已赋值的 BoolField。
func Bool(v bool) BoolField {
	return BoolField{Value: v, Valid: true}
}

// Metadata 汇总了调用方随交易附带的辅助信号。所有字段均为可选，每个字段都有
// 显式的"缺失"状态，智能体不得因字段缺失而失败。
type Metadata struct {
	// HealthFactor 是借贷头寸的健康因子，小于 1 表示可被清算。
	HealthFactor FloatField
	// CollateralRatio 是抵押率。
	CollateralRatio FloatField
	// ApprovalAmount 是 approve 调用的授权额度，nil 表示本次交易不涉及授权。
	ApprovalAmount *big.Int
	// SessionKeyAgeHours 是发起交易的会话密钥已存在的小时数。
	SessionKeyAgeHours FloatField
	// SpenderKnown 表示授权的 spender 是否为已知合约。
	SpenderKnown BoolField
}

// InputTx 是一次待评估的交易请求。对所有智能体只读。
type InputTx struct {
	ChainID *big.Int
	From    common.Address
	To      common.Address
	Value   *big.Int
	Data    []byte
	Meta    Metadata
}

// CallSelector 返回交易 calldata 的 4 字节函数选择器。
func (tx *InputTx) CallSelector() [4]byte {
	var sel [4]byte
	if tx != nil && len(tx.Data) >= 4 {
		copy(sel[:], tx.Data[:4])
	}
	return sel
}

// HasValue 判断交易是否转移原生资产。
func (tx *InputTx) HasValue() bool {
	return tx != nil && tx.Value != nil && tx.Value.Sign() > 0
}

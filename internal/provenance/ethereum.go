package provenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	xerrors "ChainSentry/internal/errors"
)

// EthereumLedgerConfig 描述以太坊账本客户端的连接参数。
type EthereumLedgerConfig struct {
	RPCURL string
	Name   string
}

// EthereumLedger 把溯源记录锚定到 EVM 链的最新区块头。
// 记录摘要与链头绑定后,任何事后篡改都可以被对账发现。
type EthereumLedger struct {
	name string
	rpc  *gethrpc.Client
	eth  *ethclient.Client
}

// NewEthereumLedger 连接配置的 RPC 节点并返回账本客户端。
func NewEthereumLedger(ctx context.Context, cfg EthereumLedgerConfig) (*EthereumLedger, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}
	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}
	return &EthereumLedger{
		name: cfg.Name,
		rpc:  rpcClient,
		eth:  ethclient.NewClient(rpcClient),
	}, nil
}

var _ Ledger = (*EthereumLedger)(nil)

// Append 读取链头并把区块号与区块哈希作为记录锚点。
// 调用方负责给 ctx 设置超时,链上读取不应无界阻塞。
func (l *EthereumLedger) Append(ctx context.Context, record *Record) (string, error) {
	header, err := l.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeLedgerFailure, err, "读取链头失败",
			xerrors.WithMetadata("record_id", record.ID))
	}
	return fmt.Sprintf("%s:block=%d:hash=%s", l.name, header.Number.Uint64(), header.Hash().Hex()), nil
}

// Close 释放 RPC 连接。
func (l *EthereumLedger) Close() {
	if l == nil {
		return
	}
	if l.eth != nil {
		l.eth.Close()
	}
}

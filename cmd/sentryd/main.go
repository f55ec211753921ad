package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ChainSentry/internal/api"
	"ChainSentry/internal/budget"
	"ChainSentry/internal/config"
	"ChainSentry/internal/consensus"
	"ChainSentry/internal/governance"
	"ChainSentry/internal/incubation"
	"ChainSentry/internal/observability/alerting"
	"ChainSentry/internal/payment"
	"ChainSentry/internal/provenance"
	"ChainSentry/internal/risk"
	"ChainSentry/internal/storage/mysql"
	"ChainSentry/internal/swarm"
	"ChainSentry/pkg/logger"
)

// main 是 ChainSentry 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("sentryd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	flagPath := flag.String("config", filepath.Join("configs", "sentry.json"), "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(config.Resolve(*flagPath))
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer logger.Sync()

	// 风险智能体:注册顺序即执行顺序。
	reputationSource, err := buildReputationSource(cfg)
	if err != nil {
		return err
	}
	agents := []risk.Agent{
		risk.NewApprovalAgent(),
		risk.NewReputationAgent(reputationSource),
		risk.NewLiquidationAgent(),
	}

	// 存储后端。
	runRepo, appRepo, closeRepos, err := buildRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepos()

	// 溯源账本与广播队列。
	recorder, closeProvenance, err := buildRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvenance()

	runnerOpts := []swarm.RunnerOption{
		swarm.WithCoordinator(risk.NewCoordinatorAgent()),
		swarm.WithRecorder(recorder),
		swarm.WithRunRepository(runRepo),
		swarm.WithAgentTimeout(cfg.Risk.AgentTimeout),
	}
	if cfg.Alerting.SlackWebhookURL != "" {
		runnerOpts = append(runnerOpts, swarm.WithAlerts(alerting.NewFanout(&alerting.SlackNotifier{
			Sender:    alerting.NewWebhookSlackSender(cfg.Alerting.SlackWebhookURL),
			ChannelID: cfg.Alerting.SlackChannel,
		})))
	}
	runner := swarm.NewRunner(agents,
		consensus.NewIntentBuilder(consensus.IntentMode(cfg.Risk.IntentMode)),
		runnerOpts...,
	)

	guard, closeGuard, err := buildReplayGuard(cfg)
	if err != nil {
		return err
	}
	defer closeGuard()

	server := api.NewServer(cfg.Server.Address, api.Deps{
		Runner:    runner,
		Advisor:   governance.NewAdvisor(staticProposalSource{}),
		Governor:  budget.NewGovernor(cfg.Budget),
		Payments:  payment.NewProcessor(payment.AcceptAllVerifier(), guard),
		Evaluator: incubation.NewEvaluator(cfg.Incubation),
		Apps:      appRepo,
		Runs:      runRepo,
	})

	logger.L().Info("sentryd 启动", "address", cfg.Server.Address)
	return server.Start(ctx)
}

func buildReputationSource(cfg *config.Config) (risk.ReputationSource, error) {
	if cfg.Risk.BlacklistPath == "" {
		return risk.NewStaticReputationSource(nil), nil
	}
	return risk.LoadStaticReputationSource(cfg.Risk.BlacklistPath)
}

func buildRepositories(ctx context.Context, cfg *config.Config) (mysql.RunRepository, mysql.AppRepository, func(), error) {
	switch cfg.Storage.RunStore.Driver {
	case "", "memory":
		return mysql.NewMemoryRunRepository(), mysql.NewMemoryAppRepository(), func() {}, nil
	case "mysql":
		dbCfg := mysql.Config{DSN: cfg.Storage.RunStore.DSN}
		runs, err := mysql.NewSQLRunRepository(ctx, dbCfg)
		if err != nil {
			return nil, nil, nil, err
		}
		apps, err := mysql.NewSQLAppRepository(ctx, dbCfg)
		if err != nil {
			runs.Close()
			return nil, nil, nil, err
		}
		return runs, apps, func() {
			_ = apps.Close()
			_ = runs.Close()
		}, nil
	default:
		return nil, nil, nil, fmt.Errorf("未知的存储驱动: %s", cfg.Storage.RunStore.Driver)
	}
}

func buildRecorder(ctx context.Context, cfg *config.Config) (*provenance.Recorder, func(), error) {
	var ledger provenance.Ledger
	closeFns := make([]func(), 0, 2)

	switch cfg.Provenance.Ledger {
	case "", "memory":
		ledger = provenance.NewMemoryLedger()
	case "ethereum":
		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		ethLedger, err := provenance.NewEthereumLedger(dialCtx, provenance.EthereumLedgerConfig{
			RPCURL: cfg.Provenance.EthereumRPC,
			Name:   "ethereum",
		})
		cancel()
		if err != nil {
			return nil, nil, err
		}
		ledger = ethLedger
		closeFns = append(closeFns, ethLedger.Close)
	default:
		return nil, nil, fmt.Errorf("未知的账本驱动: %s", cfg.Provenance.Ledger)
	}

	var queue provenance.Queue
	switch cfg.Provenance.Queue {
	case "", "memory":
		mq := provenance.NewMemoryQueue(1024)
		// 内存队列没有外部索引器,由本地消费者兜底排空。
		go func() {
			_ = mq.Consume(ctx, 1, func(_ context.Context, payload string) error {
				logger.Named("provenance").Debug("溯源记录已投递", "payload_bytes", len(payload))
				return nil
			})
		}()
		queue = mq
	case "rabbitmq":
		mq, err := provenance.NewRabbitMQQueue(provenance.RabbitMQConfig{
			URL:     cfg.Provenance.RabbitMQURL,
			Queue:   cfg.Provenance.QueueName,
			Durable: true,
		})
		if err != nil {
			return nil, nil, err
		}
		queue = mq
	default:
		return nil, nil, fmt.Errorf("未知的队列驱动: %s", cfg.Provenance.Queue)
	}
	closeFns = append(closeFns, func() { _ = queue.Close() })

	closeAll := func() {
		for i := len(closeFns) - 1; i >= 0; i-- {
			closeFns[i]()
		}
	}
	return provenance.NewRecorder(ledger, queue), closeAll, nil
}

func buildReplayGuard(cfg *config.Config) (payment.Guard, func(), error) {
	switch cfg.Payment.Driver {
	case "", "memory":
		guard := payment.NewMemoryGuard(
			payment.WithTTL(cfg.Payment.TTL),
			payment.WithCapacity(cfg.Payment.Capacity),
		)
		return guard, func() {}, nil
	case "redis":
		guard, err := payment.NewRedisGuard(payment.RedisGuardConfig{
			Address:  cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			TTL:      cfg.Payment.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return guard, func() { _ = guard.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的重放防护驱动: %s", cfg.Payment.Driver)
	}
}

// staticProposalSource 在未接入链上治理索引时返回固定文案,
// 生产部署通过实现 governance.ProposalSource 替换。
type staticProposalSource struct{}

func (staticProposalSource) ProposalText(_ context.Context, proposalID string) (string, error) {
	return "", fmt.Errorf("提案 %s 不存在: 未配置提案数据源", proposalID)
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ChainSentry/internal/budget"
	"ChainSentry/internal/incubation"
	"ChainSentry/pkg/logger"
)

// Config 描述了 ChainSentry 在启动阶段需要加载的核心配置。
type Config struct {
	Server     ServerConfig      `json:"server"`
	Storage    StorageConfig     `json:"storage"`
	Risk       RiskConfig        `json:"risk"`
	Budget     budget.Config     `json:"budget"`
	Payment    PaymentConfig     `json:"payment"`
	Incubation incubation.Config `json:"incubation"`
	Provenance ProvenanceConfig  `json:"provenance"`
	Alerting   AlertingConfig    `json:"alerting"`
	Logging    logger.Config     `json:"logging"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// StorageConfig 统一描述 MySQL、Redis 等后端的连接信息。
type StorageConfig struct {
	RunStore RunStoreConfig `json:"run_store"`
	Redis    RedisConfig    `json:"redis"`
}

// RunStoreConfig 选择运行结果与应用状态的存储驱动。
type RunStoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// RedisConfig 描述 Redis 连接信息,用于多实例共享的重放防护。
type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// RiskConfig 控制风险评估的外部数据与裁决映射。
type RiskConfig struct {
	// BlacklistPath 指向 YAML 格式的地址信誉名单。
	BlacklistPath string `json:"blacklist_path"`
	// IntentMode 决定 REVIEW_REQUIRED 裁决的映射方式。
	IntentMode string `json:"intent_mode"`
	// AgentTimeout 是单个智能体的评估超时。
	AgentTimeout time.Duration `json:"agent_timeout"`
}

// PaymentConfig 控制支付重放防护。
type PaymentConfig struct {
	Driver   string        `json:"driver"`
	TTL      time.Duration `json:"ttl"`
	Capacity int           `json:"capacity"`
}

// ProvenanceConfig 控制溯源账本与广播队列。
type ProvenanceConfig struct {
	Ledger      string `json:"ledger"`
	EthereumRPC string `json:"ethereum_rpc"`
	Queue       string `json:"queue"`
	RabbitMQURL string `json:"rabbitmq_url"`
	QueueName   string `json:"queue_name"`
}

// AlertingConfig 控制阻断裁决的告警通知。留空则不发送告警。
type AlertingConfig struct {
	SlackWebhookURL string `json:"slack_webhook_url"`
	SlackChannel    string `json:"slack_channel"`
}

// envConfigPath 允许通过环境变量覆盖配置文件路径。
const envConfigPath = "SENTRY_CONFIG"

// Resolve 返回生效的配置文件路径,环境变量优先。
func Resolve(flagPath string) string {
	if env := os.Getenv(envConfigPath); env != "" {
		return env
	}
	return flagPath
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Storage.RunStore.Driver == "" {
		c.Storage.RunStore.Driver = "memory"
	}

	if c.Risk.IntentMode == "" {
		c.Risk.IntentMode = "revoke_approval"
	}
	if c.Risk.AgentTimeout <= 0 {
		c.Risk.AgentTimeout = 5 * time.Second
	}
	if c.Risk.BlacklistPath != "" && !filepath.IsAbs(c.Risk.BlacklistPath) {
		c.Risk.BlacklistPath = filepath.Join(baseDir, c.Risk.BlacklistPath)
	}

	if c.Budget.TreasuryUSD <= 0 {
		c.Budget.TreasuryUSD = 1000
	}
	if c.Budget.DailyCapUSD <= 0 {
		c.Budget.DailyCapUSD = 50
	}
	if c.Budget.PerAppCapUSD <= 0 {
		c.Budget.PerAppCapUSD = 10
	}

	if c.Payment.Driver == "" {
		c.Payment.Driver = "memory"
	}
	if c.Payment.TTL <= 0 {
		c.Payment.TTL = 24 * time.Hour
	}
	if c.Payment.Capacity <= 0 {
		c.Payment.Capacity = 10000
	}

	if c.Provenance.Ledger == "" {
		c.Provenance.Ledger = "memory"
	}
	if c.Provenance.Queue == "" {
		c.Provenance.Queue = "memory"
	}
	if c.Provenance.QueueName == "" {
		c.Provenance.QueueName = "sentry.provenance"
	}
}

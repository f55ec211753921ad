package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSlackSender 通过 Slack Incoming Webhook 投递消息。
type WebhookSlackSender struct {
	WebhookURL string
	Client     *http.Client
}

// NewWebhookSlackSender 创建一个基于 Webhook 的 Slack 发送器。
func NewWebhookSlackSender(webhookURL string) *WebhookSlackSender {
	return &WebhookSlackSender{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Send 向 Webhook 提交消息。
func (s *WebhookSlackSender) Send(ctx context.Context, channel, content string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": channel,
		"text":    content,
	})
	if err != nil {
		return fmt.Errorf("序列化 Slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构造 Slack 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 Slack 消息失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("Slack 返回异常状态: %d", resp.StatusCode)
	}
	return nil
}

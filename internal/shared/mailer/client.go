package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// Client — 邮件中继客户端
// 调拨状态变化时向邮件中继服务发送通知，尽力而为：失败只记录不回滚主流程
// =============================================================================

// Client 邮件中继客户端
type Client struct {
	baseURL    string       // 中继服务基础地址
	httpClient *http.Client // HTTP客户端
}

// NewClient 创建邮件中继客户端实例
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Message 邮件消息
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Send 发送邮件
// POST {baseURL}/mail/send，中继端负责模板渲染和投递
func (c *Client) Send(ctx context.Context, msg *Message) error {
	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/mail/send", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request mail relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var result struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr == nil && result.Message != "" {
			return fmt.Errorf("mail relay error[%d]: %s", result.Code, result.Message)
		}
		return fmt.Errorf("mail relay status %d", resp.StatusCode)
	}

	return nil
}

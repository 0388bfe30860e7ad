package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultTongyiEndpoint 通义千问文本生成接口
const defaultTongyiEndpoint = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

// TongyiClient 通义千问客户端
type TongyiClient struct {
	cfg        *Config
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewTongyiClient 创建通义千问客户端
func NewTongyiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultTongyiEndpoint
	}

	return &TongyiClient{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name 返回模型名称
func (c *TongyiClient) Name() string {
	return c.cfg.Model
}

// Chat 进行多轮对话
func (c *TongyiClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}
	if strings.TrimSpace(messages[len(messages)-1].Content) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	opts := resolveChatOptions(c.cfg, options)

	params := &TongyiParameters{
		ResultFormat: "message",
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
		TopP:         opts.TopP,
		TopK:         opts.TopK,
	}
	if opts.JSONMode {
		params.ResponseFormat = jsonObjectFormat
	}

	req := &TongyiRequest{
		Model:      c.cfg.Model,
		Input:      &TongyiRequestInput{Messages: messages},
		Parameters: params,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	body, err := postJSON(ctx, c.httpClient, c.endpoint, headers, req, c.cfg.MaxRetries, c.logger)
	if err != nil {
		return nil, err
	}

	var resp TongyiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
	}
	if resp.Code != "" {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("API error: %s (%s)", resp.Message, resp.Code))
	}

	result := &Response{
		ModelName:  c.cfg.Model,
		TokenCount: resp.Usage.TotalTokens,
		FinishTime: time.Now(),
	}
	switch {
	case len(resp.Output.Choices) > 0:
		choice := resp.Output.Choices[0]
		result.Text = choice.Message.Content
		result.Messages = append(result.Messages, choice.Message)
	case resp.Output.Text != nil:
		result.Text = *resp.Output.Text
	default:
		return nil, NewLLMError(ErrCodeServerError, "empty response from API")
	}
	return result, nil
}

func init() {
	RegisterClient(ProviderTongyi, NewTongyiClient)
}

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

// defaultOpenAIBaseURL OpenAI 兼容接口的默认地址
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient OpenAI 兼容的 chat/completions 客户端
// 也可用于 DeepSeek 等提供兼容接口的服务
type OpenAIClient struct {
	cfg        *Config
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewOpenAIClient 创建 OpenAI 兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(append([]Option{WithModel(ModelGPT4oMini)}, opts...)...)
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenAIBaseURL
	}

	return &OpenAIClient{
		cfg:        cfg,
		endpoint:   strings.TrimRight(base, "/") + "/chat/completions",
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.cfg.Model
}

// Chat 进行多轮对话
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}
	if strings.TrimSpace(messages[len(messages)-1].Content) == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}
	opts := resolveChatOptions(c.cfg, options)

	req := &ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
	if opts.JSONMode {
		req.ResponseFormat = jsonObjectFormat
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	body, err := postJSON(ctx, c.httpClient, c.endpoint, headers, req, c.cfg.MaxRetries, c.logger)
	if err != nil {
		return nil, err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
	}
	if resp.Error != nil {
		return nil, NewLLMError(ErrCodeServerError, "API error: "+resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeServerError, "empty response from API")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, NewLLMError(ErrCodeContentFilter, ErrMsgContentFilter)
	}
	return &Response{
		Text:       choice.Message.Content,
		Messages:   []Message{choice.Message},
		TokenCount: resp.Usage.TotalTokens,
		ModelName:  c.cfg.Model,
		FinishTime: time.Now(),
	}, nil
}

func init() {
	RegisterClient(ProviderOpenAI, NewOpenAIClient)
}

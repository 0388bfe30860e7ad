// Package aiparser 通过大模型把整篇报告直接解析为案例列表
//
// 任何失败（未配置客户端、网络错误、超时、解码或结构校验失败）都只记录日志并返回空列表，
// 由调用方回退到规则解析。
package aiparser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fyerfyer/case-extractor/internal/cache"
	"github.com/fyerfyer/case-extractor/internal/caseparser"
	"github.com/fyerfyer/case-extractor/internal/llm"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout 单次解析的默认超时
const DefaultTimeout = 60 * time.Second

// ErrNoClient 未配置大模型客户端
var ErrNoClient = errors.New("llm client not configured")

var (
	fenceStart = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceEnd   = regexp.MustCompile("\\s*```$")
	firstArray = regexp.MustCompile(`(?s)\[.*\]`)
)

// Parser 大模型案例解析器，可并发使用
type Parser struct {
	client   llm.Client
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	jsonMode bool
	validate *validator.Validate
	logger   *logrus.Logger
}

// Option 解析器配置选项
type Option func(*Parser)

// WithCache 缓存解析结果，键为文本内容的哈希
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Parser) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// WithTimeout 设置单次调用超时
func WithTimeout(d time.Duration) Option {
	return func(p *Parser) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithJSONMode 使用提供方的 JSON 输出模式，此时要求模型返回 {"cases": [...]}
func WithJSONMode(enabled bool) Option {
	return func(p *Parser) {
		p.jsonMode = enabled
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New 创建解析器，client 为 nil 时 Parse 总是返回空列表
func New(client llm.Client, opts ...Option) *Parser {
	p := &Parser{
		client:   client,
		timeout:  DefaultTimeout,
		validate: validator.New(),
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Available 是否配置了大模型客户端
func (p *Parser) Available() bool {
	return p != nil && p.client != nil
}

// Parse 返回模型解析出的案例，失败时返回空列表
func (p *Parser) Parse(ctx context.Context, text string) []models.CaseRecord {
	records, err := p.ParseWithError(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrNoClient) {
			fields := logrus.Fields{"error": err.Error()}
			if code, ok := llm.ErrorCode(err); ok {
				fields["llm_code"] = code
			}
			p.logger.WithFields(fields).Warn("AI case parsing failed")
		}
		return nil
	}
	return records
}

// ParseWithError 与 Parse 相同，但返回失败原因
func (p *Parser) ParseWithError(ctx context.Context, text string) ([]models.CaseRecord, error) {
	if !p.Available() {
		return nil, ErrNoClient
	}

	key := cache.ContentKey(cache.PrefixCaseParse, text, p.client.Name())
	if records, ok := p.fromCache(key); ok {
		return records, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var opts []llm.ChatOption
	if p.jsonMode {
		opts = append(opts, llm.WithChatJSONMode())
	}

	start := time.Now()
	resp, err := p.client.Chat(ctx, buildMessages(text, p.jsonMode), opts...)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	records, err := p.decode(resp.Text)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"model":      p.client.Name(),
		"cases":      len(records),
		"tokens":     resp.TokenCount,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("AI case parsing completed")

	if len(records) > 0 {
		p.toCache(key, records)
	}
	return records, nil
}

// decode 解码、校验并转换模型输出
func (p *Parser) decode(content string) ([]models.CaseRecord, error) {
	raw, err := decodeJSON(content)
	if err != nil {
		return nil, err
	}

	items, err := unwrapCases(raw)
	if err != nil {
		return nil, err
	}
	if err := validateCaseList(items); err != nil {
		return nil, err
	}

	var records []models.CaseRecord
	for i, item := range items.([]any) {
		record, ok := toRecord(item.(map[string]any))
		if !ok {
			continue
		}
		if err := p.validate.Struct(record); err != nil {
			p.logger.WithField("index", i).WithError(err).Debug("Dropping invalid AI case")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// stripFences 去掉 Markdown 代码块标记
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// decodeJSON 先整体解码，失败后取第一个方括号包围的片段重试
func decodeJSON(content string) (any, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var v any
	err := json.Unmarshal([]byte(cleaned), &v)
	if err == nil {
		return v, nil
	}

	fragment := firstArray.FindString(cleaned)
	if fragment == "" {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal([]byte(fragment), &v); err != nil {
		return nil, fmt.Errorf("decode array fragment: %w", err)
	}
	return v, nil
}

// unwrapCases 接受顶层数组或 {"cases": [...]}
func unwrapCases(v any) (any, error) {
	switch t := v.(type) {
	case []any:
		return t, nil
	case map[string]any:
		if inner, ok := t["cases"].([]any); ok {
			return inner, nil
		}
		return nil, errors.New(`response object has no "cases" array`)
	default:
		return nil, fmt.Errorf("unexpected response type %T", v)
	}
}

// toRecord 将单个对象转换为案例，所有字段为空时丢弃
func toRecord(item map[string]any) (models.CaseRecord, bool) {
	value := func(name string) *string {
		switch t := item[name].(type) {
		case string:
			return models.StringPtr(strings.TrimSpace(t))
		case float64:
			return models.StringPtr(strconv.FormatFloat(t, 'f', -1, 64))
		default:
			return nil
		}
	}

	r := models.CaseRecord{
		Room:            value("room"),
		Status:          value("status"),
		Importance:      value("importance"),
		Type:            value("type"),
		Action:          value("action"),
		Guest:           value("guest"),
		Created:         value("created"),
		CreatedBy:       value("created_by"),
		Modified:        value("modified"),
		ModifiedBy:      value("modified_by"),
		Source:          value("source"),
		Membership:      value("membership"),
		CaseDescription: value("case_description"),
		InOut:           value("in_out"),
	}

	title := value("title")
	empty := title == nil
	for _, v := range r.Values() {
		if v != "" {
			empty = false
			break
		}
	}
	if empty {
		return r, false
	}

	if title != nil {
		r.Title = *title
	} else {
		r.Title = caseparser.DeriveTitle(&r)
	}
	return r, true
}

func (p *Parser) fromCache(key string) ([]models.CaseRecord, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, found, err := p.cache.Get(key)
	if err != nil || !found {
		return nil, false
	}
	var records []models.CaseRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil || len(records) == 0 {
		return nil, false
	}
	p.logger.WithField("cases", len(records)).Debug("AI case parsing served from cache")
	return records, true
}

func (p *Parser) toCache(key string, records []models.CaseRecord) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := p.cache.Set(key, string(data), p.cacheTTL); err != nil {
		p.logger.WithError(err).Warn("Failed to cache AI parse result")
	}
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/fyerfyer/case-extractor/internal/aiparser"
	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/caseparser"
	"github.com/fyerfyer/case-extractor/internal/document"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/fyerfyer/case-extractor/internal/ner"
	"github.com/sirupsen/logrus"
)

// 案例的解析方式
const (
	MethodAI      = "ai"
	MethodPattern = "pattern"
	MethodNone    = "none"
)

// MinTextLength 去除空白后短于该长度的文本不做解析
const MinTextLength = 10

// Extractor 从文件内容提取纯文本
type Extractor func(data []byte, filename string) (string, error)

// StageFunc 流水线进入新阶段时的回调
type StageFunc func(stage models.ProcessStage)

// PipelineResult 一次处理的结果
type PipelineResult struct {
	Cases          []models.CaseRecord `json:"cases"`
	AnonymizedText string              `json:"-"`
	Method         string              `json:"method"`
	Stats          anonymizer.Stats    `json:"anonymization_stats"`
}

// CasePipeline 报告处理流水线
// 提取文本、匿名化，再依次尝试大模型解析与规则解析。可并发使用
type CasePipeline struct {
	extract     Extractor
	anonymizer  *anonymizer.Anonymizer
	ai          *aiparser.Parser
	anonOpts    anonymizer.Options
	defaultCase bool
	logger      *logrus.Logger
}

// PipelineOption 流水线配置选项
type PipelineOption func(*CasePipeline)

// WithExtractor 替换文本提取函数
func WithExtractor(fn Extractor) PipelineOption {
	return func(p *CasePipeline) {
		if fn != nil {
			p.extract = fn
		}
	}
}

// WithAnonymizer 设置匿名化器
func WithAnonymizer(a *anonymizer.Anonymizer) PipelineOption {
	return func(p *CasePipeline) {
		if a != nil {
			p.anonymizer = a
		}
	}
}

// WithAIParser 设置大模型解析器，为空时只走规则解析
func WithAIParser(ai *aiparser.Parser) PipelineOption {
	return func(p *CasePipeline) {
		p.ai = ai
	}
}

// WithAnonymizationOptions 设置流水线使用的匿名化选项
func WithAnonymizationOptions(opts anonymizer.Options) PipelineOption {
	return func(p *CasePipeline) {
		p.anonOpts = opts
	}
}

// WithDefaultCaseFallback 规则解析无结果时用首个有意义的行构造一条案例
func WithDefaultCaseFallback(enabled bool) PipelineOption {
	return func(p *CasePipeline) {
		p.defaultCase = enabled
	}
}

// WithPipelineLogger 设置日志记录器
func WithPipelineLogger(logger *logrus.Logger) PipelineOption {
	return func(p *CasePipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewCasePipeline 创建流水线
// 默认保留日期与时间，使 Created 日期分段和日期字段在匿名化后仍可用
func NewCasePipeline(opts ...PipelineOption) *CasePipeline {
	p := &CasePipeline{
		extract:    document.Extract,
		anonymizer: anonymizer.New(anonymizer.WithRecognizer(ner.NewGazetteer())),
		anonOpts:   anonymizer.Options{PreserveDates: true, PreserveTimes: true},
		logger:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Anonymizer 返回流水线使用的匿名化器
func (p *CasePipeline) Anonymizer() *anonymizer.Anonymizer {
	return p.anonymizer
}

// AnonymizationOptions 返回流水线默认的匿名化选项
func (p *CasePipeline) AnonymizationOptions() anonymizer.Options {
	return p.anonOpts
}

// Process 处理一份报告
// 只有不支持的格式与提取失败会返回错误，其他情况都返回结果（可能为空）
func (p *CasePipeline) Process(ctx context.Context, data []byte, filename string) (*PipelineResult, error) {
	return p.ProcessWithStages(ctx, data, filename, p.anonOpts, nil)
}

// ProcessWithStages 与 Process 相同，可指定匿名化选项并接收阶段通知
func (p *CasePipeline) ProcessWithStages(ctx context.Context, data []byte, filename string, opts anonymizer.Options, onStage StageFunc) (*PipelineResult, error) {
	notify := func(stage models.ProcessStage) {
		if onStage != nil {
			onStage(stage)
		}
	}
	start := time.Now()
	log := p.logger.WithField("file_name", filename)

	notify(models.StageExtracting)
	text, err := p.extract(data, filename)
	if err != nil {
		log.WithError(err).Warn("Text extraction failed")
		return nil, err
	}

	result := p.processText(ctx, text, opts, notify)
	notify(models.StageCompleted)

	log.WithFields(logrus.Fields{
		"text_length":  len(text),
		"cases":        len(result.Cases),
		"method":       result.Method,
		"replacements": result.Stats.Total,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	}).Info("Report processed")
	return result, nil
}

// ProcessText 处理已提取的文本
func (p *CasePipeline) ProcessText(ctx context.Context, text string) *PipelineResult {
	return p.processText(ctx, text, p.anonOpts, func(models.ProcessStage) {})
}

func (p *CasePipeline) processText(ctx context.Context, text string, opts anonymizer.Options, notify StageFunc) *PipelineResult {
	result := &PipelineResult{
		Cases:  []models.CaseRecord{},
		Method: MethodNone,
	}

	if len(strings.TrimSpace(text)) < MinTextLength {
		result.AnonymizedText = strings.TrimSpace(text)
		return result
	}

	notify(models.StageAnonymizing)
	result.AnonymizedText, result.Stats = p.anonymizer.AnonymizeWithStats(text, opts)

	notify(models.StageParsing)
	if p.ai.Available() {
		if cases := p.ai.Parse(ctx, result.AnonymizedText); len(cases) > 0 {
			result.Cases = cases
			result.Method = MethodAI
			return result
		}
		p.logger.Warn("AI parsing produced no cases, falling back to pattern parsing")
	}

	if cases := caseparser.ParseCases(result.AnonymizedText); len(cases) > 0 {
		result.Cases = cases
		result.Method = MethodPattern
		return result
	}

	if p.defaultCase {
		if record, ok := caseparser.DefaultCase(result.AnonymizedText); ok {
			result.Cases = []models.CaseRecord{*record}
			result.Method = MethodPattern
			return result
		}
	}

	p.logger.Info("No cases found in report")
	return result
}

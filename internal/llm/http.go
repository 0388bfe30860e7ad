package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// retryBaseDelay 指数退避的基础间隔
var retryBaseDelay = 100 * time.Millisecond

// postJSON 发送JSON请求并返回响应体
// 网络错误与5xx按指数退避重试，每次尝试都重新构造请求，避免请求体被提前读尽
func postJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string,
	payload interface{}, maxRetries int, logger *logrus.Logger) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	reqID := uuid.New().String()
	start := time.Now()
	log := logger.WithFields(logrus.Fields{
		"req_id":         reqID,
		"content_length": len(data),
	})

	var (
		resp    *http.Response
		lastErr error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
			case <-time.After(time.Duration(1<<attempt) * retryBaseDelay):
			}
			log.WithField("attempt", attempt).Debug("Retrying LLM request")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, lastErr = hc.Do(req)
		if lastErr == nil && resp.StatusCode < 500 {
			break
		}
		if lastErr == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = statusError(resp.StatusCode, body)
			resp = nil
		}
		if ctx.Err() != nil {
			return nil, NewLLMError(ErrCodeTimeout, ctx.Err().Error())
		}
	}

	if resp == nil {
		log.WithError(lastErr).Warn("LLM request failed")
		return nil, WrapError(lastErr, ErrCodeNetworkError)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	log.WithFields(logrus.Fields{
		"status":     resp.StatusCode,
		"bytes":      len(body),
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Debug("LLM response received")

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// statusError 将HTTP状态码映射为错误码
func statusError(status int, body []byte) LLMError {
	var errResp struct {
		Code    interface{} `json:"code"`
		Message string      `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != nil && errResp.Error.Message != "":
			msg = errResp.Error.Message
		case errResp.Message != "":
			msg = fmt.Sprintf("%s (%v)", errResp.Message, errResp.Code)
		}
	}
	msg = fmt.Sprintf("API error (status %d): %s", status, msg)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(ErrCodeInvalidAPIKey, msg)
	case status == http.StatusTooManyRequests:
		return NewLLMError(ErrCodeRateLimited, msg)
	case status == http.StatusRequestEntityTooLarge:
		return NewLLMError(ErrCodeContextTooLong, msg)
	case status >= 500:
		return NewLLMError(ErrCodeServerError, msg)
	default:
		return NewLLMError(ErrCodeInvalidRequest, msg)
	}
}

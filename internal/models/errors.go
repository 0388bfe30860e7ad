package models

import "errors"

var (
	// ErrDocumentNotFound 报告不存在错误
	ErrDocumentNotFound = errors.New("document not found")

	// ErrCaseNotFound 案例不存在错误
	ErrCaseNotFound = errors.New("case not found")

	// ErrInvalidDocumentStatus 无效的报告状态错误
	ErrInvalidDocumentStatus = errors.New("invalid document status")
)

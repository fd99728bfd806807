// Package errors provides standardized error handling for the scoring pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAuthorizationFailed ErrorCode = "AUTHORIZATION_ERROR"

	ErrCodeScoringServiceError  ErrorCode = "SCORING_SERVICE_ERROR"
	ErrCodeSessionCreateFailed  ErrorCode = "SESSION_CREATE_FAILED"
	ErrCodeDocumentTransfer     ErrorCode = "DOCUMENT_TRANSFER_FAILED"
	ErrCodeScoringTriggerFailed ErrorCode = "SCORING_TRIGGER_FAILED"

	ErrCodeJobTimeout       ErrorCode = "JOB_TIMEOUT"
	ErrCodeDuplicatePending ErrorCode = "DUPLICATE_PENDING_JOB"

	ErrCodeLedgerWriteFailed  ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeProfileWriteFailed ErrorCode = "PROFILE_WRITE_FAILED"
	ErrCodeQueryFailed        ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditIndexFailed   ErrorCode = "AUDIT_INDEX_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAuthorizationError creates a non-retryable trigger credential error.
func NewAuthorizationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthorizationFailed,
		Message:   "Invalid or missing cron credential",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringServiceError creates a retryable external service error. Jobs and
// subjects touched by this error are left as-is and picked up next run.
func NewScoringServiceError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringServiceError,
		Message:   "Scoring service call failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionCreateFailedError creates an error for a voided submission.
func NewSessionCreateFailedError(talentID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionCreateFailed,
		Message:   "Scoring session creation failed",
		Details:   fmt.Sprintf("talentId: %s, error: %s", talentID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDocumentTransferError records a failed evidence transfer.
func NewDocumentTransferError(talentID, fileName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentTransfer,
		Message:   "Evidence document transfer failed",
		Details:   fmt.Sprintf("talentId: %s, file: %s, error: %s", talentID, fileName, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringTriggerFailedError creates an error for a voided submission whose
// session was created but never triggered. The orphan session is accepted waste.
func NewScoringTriggerFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringTriggerFailed,
		Message:   "Scoring trigger failed",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobTimeoutError creates the terminal staleness error.
func NewJobTimeoutError(jobID string, age time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobTimeout,
		Message:   "Scoring job timed out waiting for results",
		Details:   fmt.Sprintf("jobId: %s, age: %s", jobID, age),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicatePendingError creates a non-retryable duplicate submission error.
func NewDuplicatePendingError(talentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicatePending,
		Message:   "Talent already has a pending scoring job",
		Details:   fmt.Sprintf("talentId: %s", talentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLedgerWriteFailedError creates a retryable ledger write error.
func NewLedgerWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLedgerWriteFailed,
		Message:   "Job ledger write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileWriteFailedError records the documented gap: the job is still
// marked completed when this occurs.
func NewProfileWriteFailedError(talentID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileWriteFailed,
		Message:   "Talent profile score write failed",
		Details:   fmt.Sprintf("talentId: %s, error: %s", talentID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryFailedError creates a retryable query execution error.
func NewQueryFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a retryable notification send error.
func NewNotificationFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditIndexFailedError creates a retryable audit indexing error.
func NewAuditIndexFailedError(jobID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Audit index write failed",
		Details:   fmt.Sprintf("jobId: %s, error: %s", jobID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable on a later run.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeScoringServiceError,
		ErrCodeSessionCreateFailed,
		ErrCodeDocumentTransfer,
		ErrCodeScoringTriggerFailed,
		ErrCodeLedgerWriteFailed,
		ErrCodeProfileWriteFailed,
		ErrCodeQueryFailed,
		ErrCodeNotificationFailed,
		ErrCodeAuditIndexFailed:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTHORIZATION"):
		return "AUTH"
	case strings.Contains(codeStr, "SCORING") || strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "DOCUMENT"):
		return "PROVIDER"
	case strings.Contains(codeStr, "LEDGER") || strings.Contains(codeStr, "PROFILE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TIMEOUT") || strings.Contains(codeStr, "JOB"):
		return "JOB"
	default:
		return "OTHER"
	}
}

// Package errors provides standardized error values for the loan assistant and
// their mapping to HTTP responses and BPMN job failures.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMessageInvalid ErrorCode = "MESSAGE_INVALID"

	ErrCodeLoanNotFound          ErrorCode = "LOAN_NOT_FOUND"
	ErrCodeCustomerNotFound      ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerTokenInvalid  ErrorCode = "CUSTOMER_TOKEN_INVALID"
	ErrCodeDatabaseConnection    ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed  ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout          ErrorCode = "QUERY_TIMEOUT"
	ErrCodeExchangeRecordFailed  ErrorCode = "EXCHANGE_RECORD_FAILED"
	ErrCodeIntentCatalogInvalid  ErrorCode = "INTENT_CATALOG_INVALID"
	ErrCodeDuplicateIntent       ErrorCode = "DUPLICATE_INTENT"
	ErrCodeLLMUnavailable        ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMTimeout            ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed   ErrorCode = "LLM_GENERATION_FAILED"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalServiceFailed ErrorCode = "EXTERNAL_SERVICE_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageInvalidError rejects an empty or oversized chat message.
func NewMessageInvalidError(details string) *StandardError {
	return newError(ErrCodeMessageInvalid, "Message is required", details, false)
}

// NewLoanNotFoundError reports that no sanction row matched the identifier pair.
func NewLoanNotFoundError(loanID, accountNumber string) *StandardError {
	return newError(ErrCodeLoanNotFound, "Loan not found",
		fmt.Sprintf("loanId: %s, accountNumber: %s", loanID, accountNumber), false)
}

// NewCustomerNotFoundError reports that a decoded customer token has no customer row.
func NewCustomerNotFoundError(customerID string) *StandardError {
	return newError(ErrCodeCustomerNotFound, "Customer not found",
		fmt.Sprintf("customerId: %s", customerID), false)
}

// NewCustomerTokenInvalidError reports a token that could not be decoded.
func NewCustomerTokenInvalidError(err error) *StandardError {
	return newError(ErrCodeCustomerTokenInvalid, "Customer token could not be decoded", err.Error(), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnection, "Database connection error", err.Error(), true)
}

func NewQueryExecutionFailedError(queryName string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", queryName, err.Error()), true)
}

func NewQueryTimeoutError(queryName string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout",
		fmt.Sprintf("query: %s", queryName), true)
}

func NewExchangeRecordFailedError(sink string, err error) *StandardError {
	return newError(ErrCodeExchangeRecordFailed, "Chat exchange could not be recorded",
		fmt.Sprintf("sink: %s, error: %s", sink, err.Error()), true)
}

func NewIntentCatalogInvalidError(details string) *StandardError {
	return newError(ErrCodeIntentCatalogInvalid, "Intent catalog failed validation", details, false)
}

func NewDuplicateIntentError(tag string) *StandardError {
	return newError(ErrCodeDuplicateIntent, "Intent tag already exists",
		fmt.Sprintf("tag: %s", tag), false)
}

func NewLLMUnavailableError(model string) *StandardError {
	return newError(ErrCodeLLMUnavailable, "Generative model is not available",
		fmt.Sprintf("model: %s", model), false)
}

func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeLLMTimeout, "Generative model timeout",
		fmt.Sprintf("call exceeded %s", timeout), true)
}

func NewLLMGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Generative model error", err.Error(), true)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalServiceFailed,
		fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// ==========================
// 4. Error Conversion
// ==========================

// GetRetryCount returns the recommended retry count for job failures.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnection,
		ErrCodeQueryExecutionFailed,
		ErrCodeExchangeRecordFailed,
		ErrCodeExternalServiceFailed:
		return 3
	case ErrCodeQueryTimeout,
		ErrCodeLLMGenerationFailed:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status the API layer answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMessageInvalid, ErrCodeCustomerTokenInvalid, ErrCodeIntentCatalogInvalid:
		return http.StatusBadRequest
	case ErrCodeLoanNotFound, ErrCodeCustomerNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicateIntent:
		return http.StatusConflict
	case ErrCodeQueryTimeout, ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeLLMUnavailable, ErrCodeDatabaseConnection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LOAN") || strings.Contains(codeStr, "CUSTOMER"):
		return "LOAN_DATA"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "EXCHANGE"):
		return "DATABASE"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "INTENT"):
		return "AI"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

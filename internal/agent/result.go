// File path: internal/agent/result.go
package agent

import "fmt"

// Error codes carried by dispatch results. Routing and validation codes are
// produced by the dispatcher itself; the remainder come from providers.
const (
	CodeUnknownAgent       = "UNKNOWN_AGENT"
	CodeUnsupportedAction  = "UNSUPPORTED_ACTION"
	CodeDispatchError      = "DISPATCH_ERROR"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeProjectNotFound    = "PROJECT_NOT_FOUND"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeQuestionNotFound   = "QUESTION_NOT_FOUND"
	CodeConflictNotFound   = "CONFLICT_NOT_FOUND"
	CodeExtractionError    = "EXTRACTION_ERROR"
	CodeConflictDetected   = "CONFLICT_DETECTED"
	CodeConflictCheckError = "CONFLICT_CHECK_ERROR"
	CodeQualityCheckFailed = "QUALITY_CHECK_FAILED"
	CodeStoreError         = "STORE_ERROR"
)

// Result is the uniform outcome of a dispatch. Every call through the
// registry produces one; the registry never lets an error escape as a Go
// panic or return value.
type Result struct {
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
	ErrorCode string                 `json:"error_code,omitempty"`
}

// OK builds a successful result carrying the provided data.
func OK(data map[string]interface{}) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failed result tagged with a structured error code.
func Fail(code, format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...), ErrorCode: code}
}

// String returns a single field of the result data as a string.
func (r Result) String(key string) string {
	if r.Data == nil {
		return ""
	}
	if value, ok := r.Data[key].(string); ok {
		return value
	}
	return ""
}

// Bool returns a single field of the result data as a bool.
func (r Result) Bool(key string) bool {
	if r.Data == nil {
		return false
	}
	if value, ok := r.Data[key].(bool); ok {
		return value
	}
	return false
}

// Float returns a single field of the result data as a float64.
func (r Result) Float(key string) float64 {
	if r.Data == nil {
		return 0
	}
	switch value := r.Data[key].(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}

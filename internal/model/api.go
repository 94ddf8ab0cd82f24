package model

import "time"

// APIResponse is the standard success envelope for JSON responses.
type APIResponse struct {
	Data any          `json:"data"`
	Meta ResponseMeta `json:"meta"`
}

// ResponseMeta carries request-correlation metadata on every response.
type ResponseMeta struct {
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the standard error envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail describes one error in an APIError response.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// NewAPIResponse wraps data in the standard success envelope.
func NewAPIResponse(requestID string, data any) APIResponse {
	return APIResponse{
		Data: data,
		Meta: ResponseMeta{RequestID: requestID, Timestamp: time.Now().UTC()},
	}
}

// NewAPIError wraps an AppError in the standard error envelope. An
// UnsafeTarget error is written out as a Validation error with a generic
// message, so the client is not told that the SSRF guard refused the URL.
func NewAPIError(requestID string, err *AppError) APIError {
	detail := ErrorDetail{Code: err.Code, Message: err.Message, Details: err.Details}
	if err.Code == ErrCodeUnsafeTarget {
		detail = ErrorDetail{Code: ErrCodeValidation, Message: "invalid URL"}
	}
	return APIError{
		Error: detail,
		Meta:  ResponseMeta{RequestID: requestID, Timestamp: time.Now().UTC()},
	}
}

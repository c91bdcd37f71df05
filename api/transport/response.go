package transport

import "github.com/fastygo/sessionguard/domain"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every JSON body the API writes.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

// NewError builds a failure body. code is a domain.ErrorCode value.
func NewError(code string, message string, meta interface{}) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: message, Meta: meta}
}

// Failure is NewError for a domain error code without metadata.
func Failure(code domain.ErrorCode, message string) Envelope {
	return NewError(string(code), message, nil)
}

// RetryMeta tells a throttled client how many seconds remain in the window.
type RetryMeta struct {
	RetryAfter int64 `json:"retryAfter"`
}

// Message is the body of responses that only confirm an action.
type Message struct {
	Message string `json:"message"`
}

type UsersResponse struct {
	Message string        `json:"message"`
	Users   []domain.User `json:"users"`
}

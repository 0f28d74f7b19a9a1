package rpsdto

// DomainError is the wire form of a failed request.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "rps service error"
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}

package dto

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// MessageResponse is the body of requests that only acknowledge an action
type MessageResponse struct {
	Message string `json:"message"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string, err error) ErrorResponse {
	resp := ErrorResponse{Message: message, Code: code}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// ReadQuery holds the storefront read parameters taken from the query string
type ReadQuery struct {
	Locale   string `form:"locale"`
	Fields   string `form:"fields"`
	Populate string `form:"populate"`
}

// ReadBody holds the storefront read parameters of the POST variants.
// Populate is any JSON value in the CMS populate syntax.
type ReadBody struct {
	Locale   string   `json:"locale"`
	Fields   []string `json:"fields"`
	Populate any      `json:"populate"`
}

// HealthResponse reports dependency status
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Uptime string            `json:"uptime"`
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

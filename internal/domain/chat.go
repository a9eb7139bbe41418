package domain

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTemperature is used when a chat request does not carry one
const DefaultTemperature = 0.7

// Message represents a chat message
type Message struct {
	Role    Role   `json:"role" binding:"required,oneof=system user assistant"`
	Content string `json:"content"`
}

// ChatRequest is the request to stream a chat completion
type ChatRequest struct {
	Model       string    `json:"model" binding:"required"`
	Temperature *float64  `json:"temperature,omitempty" binding:"omitempty,min=0,max=2"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages" binding:"required,dive"`
	UseRAG      bool      `json:"useRag"`
	PromptName  string    `json:"promptName,omitempty"`
}

// TemperatureOrDefault returns the requested temperature or DefaultTemperature
func (r *ChatRequest) TemperatureOrDefault() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// SSE event names emitted on a chat stream
const (
	EventOpen  = "open"
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// OpenPayload is the data of the open event
type OpenPayload struct {
	Model string `json:"model"`
}

// TokenPayload is the data of a token event
type TokenPayload struct {
	Token string `json:"token"`
}

// ErrorPayload is the data of an error event
type ErrorPayload struct {
	Error string `json:"error"`
}

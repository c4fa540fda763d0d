package store

import "time"

// LLMExchange is one prompt/response round trip with the generation backend
type LLMExchange struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Provider  string        `json:"provider"` // e.g. "gemini"
	Model     string        `json:"model"`
	Mode      string        `json:"mode"` // structured, tools, rewrite, image
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the exchange ended in an error
func (e LLMExchange) Failed() bool {
	return e.Error != ""
}

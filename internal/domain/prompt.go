package domain

// Prompt is a named system prompt preset
type Prompt struct {
	Name    string `json:"name" binding:"required"`
	Text    string `json:"text" binding:"required"`
	Version string `json:"version"`
}

// PromptList is the persisted and returned prompt collection
type PromptList struct {
	Items []Prompt `json:"items"`
}

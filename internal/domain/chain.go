package domain

// Usage reports token counts when a provider returns them
type Usage struct {
	PromptTokens     int `json:"promptTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens,omitempty"`
}

// ChainResult is the aggregated output of a single chain run
type ChainResult struct {
	Response string `json:"response"`
	Usage    *Usage `json:"usage,omitempty"`
}

// SummarizeRequest summarizes a conversation or a block of text
type SummarizeRequest struct {
	Text         string    `json:"text,omitempty"`
	Conversation []Message `json:"conversation,omitempty" binding:"omitempty,dive"`
	Type         string    `json:"type,omitempty" binding:"omitempty,oneof=conversation document general"`
	Length       string    `json:"length,omitempty" binding:"omitempty,oneof=brief moderate detailed"`
}

// SummarizeResponse is the response of the summarize chain
type SummarizeResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints,omitempty"`
	WordCount int      `json:"wordCount"`
}

// QARequest answers a question from the given context, or from retrieved
// chunks when no context is supplied
type QARequest struct {
	Question string   `json:"question" binding:"required"`
	Context  []string `json:"context,omitempty"`
}

// QAResponse is the response of the qa chain
type QAResponse struct {
	Answer  string        `json:"answer"`
	Sources []QueryResult `json:"sources,omitempty"`
}

// CodeExplainRequest explains a code snippet
type CodeExplainRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language,omitempty"`
	Context  string `json:"context,omitempty"`
}

// CodeExplainResponse is the response of the explain-code chain.
// Complexity and Suggestions are heuristics derived from the explanation text.
type CodeExplainResponse struct {
	Explanation string   `json:"explanation"`
	KeyPoints   []string `json:"keyPoints,omitempty"`
	Complexity  string   `json:"complexity,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// CreativeWriteRequest generates a piece of writing
type CreativeWriteRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Style  string `json:"style,omitempty" binding:"omitempty,oneof=formal casual creative poetic professional"`
	Length string `json:"length,omitempty" binding:"omitempty,oneof=short medium long"`
	Genre  string `json:"genre,omitempty"`
}

// CreativeWriteResponse is the response of the creative-write chain
type CreativeWriteResponse struct {
	Content   string `json:"content"`
	Title     string `json:"title,omitempty"`
	WordCount int    `json:"wordCount"`
}

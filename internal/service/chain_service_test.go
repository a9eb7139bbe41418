package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/liliang-cn/castle/internal/domain"
)

func TestFillTemplate(t *testing.T) {
	got := FillTemplate("Explain {language}: {code} {unknown}", map[string]string{
		"language": "go",
		"code":     "func() { return {language} }",
	})
	want := "Explain go: func() { return {language} } {unknown}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDetectComplexity(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"This runs in O(n^2) time, not O(n)", "O(n²)"},
		{"overall o(n²)", "O(n²)"},
		{"Sorting makes it O(n log n)", "O(n log n)"},
		{"binary search is O(log n)", "O(log n)"},
		{"a single pass, O(N)", "O(n)"},
		{"constant O(1) lookup", "O(1)"},
		{"no idea", ""},
	}
	for _, tt := range tests {
		if got := DetectComplexity(tt.text); got != tt.want {
			t.Errorf("DetectComplexity(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestDetectSuggestions(t *testing.T) {
	got := DetectSuggestions("The nested loop hurts performance and there is no error handling.")
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %v", got)
	}
	if DetectSuggestions("All good.") != nil {
		t.Error("expected no suggestions")
	}
}

func TestExtractKeyPoints(t *testing.T) {
	text := "Summary line.\n- first point\n* second point\n1. third point\n2) fourth\n**Bold heading**"
	got := ExtractKeyPoints(text)
	want := []string{"first point", "second point", "third point", "fourth"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		in        string
		wantTitle string
		wantBody  string
	}{
		{"# The Sea\n\nWaves roll.", "The Sea", "Waves roll."},
		{"Title: \"Night\"\nStars.", "Night", "Stars."},
		{"**Dawn**\nLight.", "Dawn", "Light."},
		{"Just a poem.\nSecond line.", "", "Just a poem.\nSecond line."},
	}
	for _, tt := range tests {
		title, body := SplitTitle(tt.in)
		if title != tt.wantTitle || body != tt.wantBody {
			t.Errorf("SplitTitle(%q) = %q, %q", tt.in, title, body)
		}
	}
}

func TestSummarizeConversation(t *testing.T) {
	f := newFixture(t)
	f.openai.tokens = []string{"They agreed.\n", "- ship on Friday\n", "- write docs"}

	resp, err := f.chains.Summarize(context.Background(), &domain.SummarizeRequest{
		Conversation: []domain.Message{
			{Role: domain.RoleUser, Content: "ship friday?"},
			{Role: domain.RoleAssistant, Content: "yes"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	prompt := f.openai.last.Messages[0].Content
	if !strings.Contains(prompt, "user: ship friday?\nassistant: yes") {
		t.Errorf("expected role-labelled lines in prompt, got %q", prompt)
	}
	if f.openai.last.Model != "gpt-4o-mini" {
		t.Errorf("expected default chain model, got %s", f.openai.last.Model)
	}
	if len(resp.KeyPoints) != 2 || resp.WordCount != 9 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestSummarizeRequiresInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.chains.Summarize(context.Background(), &domain.SummarizeRequest{})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestQARetrievesWhenContextEmpty(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Rust has a borrow checker")
	f.openai.tokens = []string{"It has a borrow checker."}

	resp, err := f.chains.QA(context.Background(), &domain.QARequest{Question: "what does rust have?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Text != "Rust has a borrow checker" {
		t.Errorf("expected retrieved source, got %+v", resp.Sources)
	}
	if !strings.Contains(f.openai.last.Messages[0].Content, "Context:\nRust has a borrow checker") {
		t.Errorf("expected retrieved context in prompt, got %q", f.openai.last.Messages[0].Content)
	}

	resp, err = f.chains.QA(context.Background(), &domain.QARequest{Question: "q", Context: []string{"given"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Sources != nil {
		t.Errorf("expected no sources with supplied context, got %+v", resp.Sources)
	}
}

func TestExplainCode(t *testing.T) {
	f := newFixture(t)
	f.openai.tokens = []string{"Loops twice: O(n^2).", " Missing error handling."}

	resp, err := f.chains.ExplainCode(context.Background(), &domain.CodeExplainRequest{Code: "for {}"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Complexity != "O(n²)" || len(resp.Suggestions) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !strings.Contains(f.openai.last.Messages[0].Content, "Explain the following code in simple terms") {
		t.Errorf("expected default language, got %q", f.openai.last.Messages[0].Content)
	}
}

func TestCreativeWrite(t *testing.T) {
	f := newFixture(t)
	f.openai.tokens = []string{"# Tides\n\n", "The sea keeps time."}

	resp, err := f.chains.CreativeWrite(context.Background(), &domain.CreativeWriteRequest{
		Prompt: "the ocean",
		Length: "long",
		Genre:  "poem",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Tides" || resp.Content != "The sea keeps time." || resp.WordCount != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
	prompt := f.openai.last.Messages[0].Content
	if !strings.Contains(prompt, "approximately 800 words") || !strings.Contains(prompt, "Write a poem about: the ocean") {
		t.Errorf("unexpected prompt %q", prompt)
	}
}

func TestChainProviderError(t *testing.T) {
	f := newFixture(t)
	f.openai.err = errors.New("OpenAI error: 401")
	if _, err := f.chains.ExplainCode(context.Background(), &domain.CodeExplainRequest{Code: "x"}); err == nil {
		t.Error("expected provider error")
	}
}

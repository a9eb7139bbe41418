package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/liliang-cn/castle/internal/domain"
	"github.com/liliang-cn/castle/internal/sse"
)

var (
	serverURL   = flag.String("server", "http://localhost:3001", "Castle server URL")
	modelName   = flag.String("model", "ollama:llama2", "Model identifier, e.g. openai:gpt-4o-mini")
	temperature = flag.Float64("temp", domain.DefaultTemperature, "Temperature for sampling")
	system      = flag.String("system", "", "System prompt")
	promptName  = flag.String("prompt", "", "Name of a stored prompt to use as system prompt")
	useRAG      = flag.Bool("rag", false, "Enrich questions with stored documents")
	apiKey      = flag.String("api-key", os.Getenv("CASTLE_SERVER_API_KEY"), "API key, if the server requires one")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Println(boldGreen("Castle chat"))
	fmt.Printf("Server: %s  Model: %s  RAG: %v\n", *serverURL, boldCyan(*modelName), *useRAG)
	fmt.Println("Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	client := &http.Client{}
	var conversation []domain.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		conversation = append(conversation, domain.Message{Role: domain.RoleUser, Content: input})

		fmt.Print(boldCyan("Assistant: "))
		reply, err := stream(ctx, client, conversation, func(token string) {
			fmt.Print(token)
		})
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintln(os.Stderr, red("Error: "+err.Error()))
			// drop the unanswered turn so it can be retried
			conversation = conversation[:len(conversation)-1]
			continue
		}
		fmt.Println(faint(fmt.Sprintf("(%d characters)", len(reply))))
		fmt.Println()

		conversation = append(conversation, domain.Message{Role: domain.RoleAssistant, Content: reply})
	}
}

// stream posts one chat request and prints tokens as they arrive. It
// returns the full reply once the done event is received.
func stream(ctx context.Context, client *http.Client, messages []domain.Message, onToken func(string)) (string, error) {
	temp := *temperature
	body, err := json.Marshal(domain.ChatRequest{
		Model:       *modelName,
		Temperature: &temp,
		System:      *system,
		Messages:    messages,
		UseRAG:      *useRAG,
		PromptName:  *promptName,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(*serverURL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e domain.ErrorPayload
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var reply strings.Builder
	events := sse.NewReader(resp.Body)
	for {
		ev, err := events.Next()
		if errors.Is(err, io.EOF) {
			return reply.String(), errors.New("stream ended without done event")
		}
		if err != nil {
			return reply.String(), err
		}

		switch ev.Name {
		case domain.EventToken:
			var p domain.TokenPayload
			if err := ev.Decode(&p); err != nil {
				return reply.String(), err
			}
			reply.WriteString(p.Token)
			onToken(p.Token)
		case domain.EventError:
			var p domain.ErrorPayload
			if err := ev.Decode(&p); err != nil {
				return reply.String(), err
			}
			return reply.String(), errors.New(p.Error)
		case domain.EventDone:
			return reply.String(), nil
		}
	}
}

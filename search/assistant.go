package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// maxHistory bounds how many earlier turns are sent with a question.
	maxHistory = 10
)

var ErrNoQuestion = errors.New("last message must be a non-empty user message")

const systemPrompt = `You are Vector11, a football assistant. Answer questions about clubs, players, matches, transfers and statistics.
Use the context below when it is relevant and prefer it over what you remember, since it was scraped recently.
If the context does not contain the answer, say so briefly and answer from general knowledge, noting that it may be out of date.
Keep answers short and factual. Do not invent scores, dates or numbers.`

const noContextNote = `No stored articles matched this question. Answer from general knowledge and say that recent results may not be reflected.`

const rewritePrompt = `Rewrite the user's last question as a single standalone search query about football, resolving pronouns and references from the conversation.
Reply with the query only.`

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
	Query   string   `json:"-"`
}

// Generator is the part of llms.Model the assistant calls.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Assistant answers chat questions from retrieved football context.
type Assistant struct {
	embedder  QueryEmbedder
	retriever *Retriever
	model     Generator
	topK      int
	logger    *zap.Logger
}

func NewAssistant(embedder QueryEmbedder, retriever *Retriever, model Generator, topK int, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Assistant{embedder: embedder, retriever: retriever, model: model, topK: topK, logger: logger}
}

// NewChatModel builds an OpenAI-compatible chat model.
func NewChatModel(baseURL, apiKey, model string) (*openai.LLM, error) {
	return openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
}

// Answer replies to the last user message in messages. Earlier messages are
// used to rewrite a follow-up into a standalone query and are sent along with
// the question.
func (a *Assistant) Answer(ctx context.Context, messages []Message) (*Answer, error) {
	if len(messages) == 0 {
		return nil, ErrNoQuestion
	}
	last := messages[len(messages)-1]
	question := strings.TrimSpace(last.Content)
	if last.Role != RoleUser || question == "" {
		return nil, ErrNoQuestion
	}
	history := messages[:len(messages)-1]
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	query := question
	if len(history) > 0 {
		query = a.rewrite(ctx, history, question)
	}

	vector, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	retrieved, err := a.retriever.Retrieve(ctx, vector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	a.logger.Info("retrieved context",
		zap.String("query", query),
		zap.Int("children", retrieved.Children),
		zap.Int("parents", retrieved.Parents),
		zap.Bool("fallback", retrieved.Fallback),
	)

	system := systemPrompt + "\n\n"
	if retrieved.Empty() {
		system += noContextNote
	} else {
		system += "Context:\n" + retrieved.Text
	}

	content := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, system)}
	content = append(content, toMessageContent(history)...)
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, question))

	text, err := a.generate(ctx, content, llms.WithTemperature(0.3))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := retrieved.Sources
	if sources == nil {
		sources = []string{}
	}
	return &Answer{Text: text, Sources: sources, Query: query}, nil
}

// rewrite turns a follow-up into a standalone query. On failure the question
// is used unchanged.
func (a *Assistant) rewrite(ctx context.Context, history []Message, question string) string {
	var transcript strings.Builder
	for _, m := range history {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&transcript, "%s: %s", RoleUser, question)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, rewritePrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, transcript.String()),
	}
	query, err := a.generate(ctx, content, llms.WithTemperature(0))
	if err != nil || query == "" {
		a.logger.Warn("query rewrite failed, using question as-is", zap.Error(err))
		return question
	}
	return query
}

func (a *Assistant) generate(ctx context.Context, content []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	resp, err := a.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func toMessageContent(history []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

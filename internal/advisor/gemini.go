package advisor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// プロンプトを投げて本文を返すだけの部分（テストで差し替える）
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrUnavailable, err)
	}
	return resp.Text(), nil
}

// Gemini はGoogleのGemini APIを使う。
// 構成の提案はプロンプトでJSONブロックを書かせて、返答から正規表現で拾う
type Gemini struct {
	gen generator
}

var _ Advisor = (*Gemini)(nil)

func NewGemini(ctx context.Context, apiKey string, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{gen: &genaiGenerator{client: client, model: model}}, nil
}

func (g *Gemini) Chat(ctx context.Context, message string, catalog []string) (Reply, error) {
	text, err := g.gen.Generate(ctx, chatPrompt(message, catalog))
	if err != nil {
		return Reply{}, err
	}

	rest, sel := extractSelection(text)
	return Reply{Text: rest, Selection: sel}, nil
}

func (g *Gemini) Describe(ctx context.Context, name string, category string) (string, error) {
	text, err := g.gen.Generate(ctx, describePrompt(name, category))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func chatPrompt(message string, catalog []string) string {
	var b strings.Builder
	b.WriteString("You are a PC building assistant for an online hardware store.\n")
	b.WriteString("Answer briefly. Only recommend parts from this inventory:\n")
	for _, name := range catalog {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("If you propose a build, append a ```json block with the keys ")
	b.WriteString("cpu, motherboard, ram, gpu, storage, psu, case. ")
	b.WriteString("Use exact inventory names, or null for a slot you leave empty.\n\n")
	b.WriteString("Customer: ")
	b.WriteString(message)
	return b.String()
}

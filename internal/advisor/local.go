package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultLocalChatURL = "http://localhost:5000/chat"

// 商品説明を頼むときのmensaje
const describeMarker = "DESCRIBE_PRODUCTO"

// LocalChat はローカルで動くチャットAPIに問い合わせる
type LocalChat struct {
	url    string
	client *http.Client
}

var _ Advisor = (*LocalChat)(nil)

// DI
func NewLocalChat(url string, client *http.Client) *LocalChat {
	if url == "" {
		url = DefaultLocalChatURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &LocalChat{url: url, client: client}
}

type localChatRequest struct {
	Mensaje  string `json:"mensaje"`
	Contexto string `json:"contexto,omitempty"`
}

type localChatResponse struct {
	Respuesta string     `json:"respuesta"`
	Seleccion *Selection `json:"seleccion"`
}

func (l *LocalChat) Chat(ctx context.Context, message string, _ []string) (Reply, error) {
	res, err := l.post(ctx, localChatRequest{Mensaje: message})
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{Text: res.Respuesta}
	if res.Seleccion != nil {
		sel := res.Seleccion.Normalize()
		if !sel.IsEmpty() {
			reply.Selection = &sel
		}
	}
	return reply, nil
}

func (l *LocalChat) Describe(ctx context.Context, name string, category string) (string, error) {
	res, err := l.post(ctx, localChatRequest{
		Mensaje:  describeMarker,
		Contexto: describePrompt(name, category),
	})
	if err != nil {
		return "", err
	}
	return res.Respuesta, nil
}

func (l *LocalChat) post(ctx context.Context, in localChatRequest) (localChatResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return localChatResponse{}, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return localChatResponse{}, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return localChatResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return localChatResponse{}, fmt.Errorf("%w: chat returned status %d: %s", ErrUnavailable, resp.StatusCode, string(b))
	}

	var out localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return localChatResponse{}, fmt.Errorf("decode chat response: %w", err)
	}
	return out, nil
}

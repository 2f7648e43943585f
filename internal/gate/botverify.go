package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const botVerifyTimeout = 5 * time.Second

// BotVerifier scores a write's humanness from 0.0 (bot) to 1.0 (human).
// An error means the scoring service was unreachable or timed out; the
// pipeline decides fail-open vs fail-closed, not the verifier.
type BotVerifier interface {
	Verify(ctx context.Context, token, actorFingerprint string) (float64, error)
}

// HTTPBotVerifier calls the external scoring collaborator over HTTP.
type HTTPBotVerifier struct {
	url    string
	client *http.Client
}

func NewHTTPBotVerifier(url string) *HTTPBotVerifier {
	return &HTTPBotVerifier{
		url:    url,
		client: &http.Client{Timeout: botVerifyTimeout},
	}
}

type botVerifyRequest struct {
	Token            string `json:"token"`
	ActorFingerprint string `json:"actorFingerprint"`
}

type botVerifyResponse struct {
	Score float64 `json:"score"`
	OK    bool    `json:"ok"`
}

func (v *HTTPBotVerifier) Verify(ctx context.Context, token, actorFingerprint string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, botVerifyTimeout)
	defer cancel()

	body, err := json.Marshal(botVerifyRequest{Token: token, ActorFingerprint: actorFingerprint})
	if err != nil {
		return 0, fmt.Errorf("bot verify: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("bot verify: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("bot verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bot verify: status %d", resp.StatusCode)
	}

	var out botVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("bot verify: decode: %w", err)
	}
	if !out.OK {
		// The service answered but could not score the token; treat as
		// a failed (bot-like) verification, not an outage.
		return 0, nil
	}
	return out.Score, nil
}

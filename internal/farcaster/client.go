// Package farcaster is a small client for the Neynar v2 HTTP API covering the
// two calls the reply pipeline needs: fetching a conversation tree and
// publishing a reply cast.
package farcaster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-cast-agent/internal/config"
	"github.com/tbourn/go-cast-agent/internal/domain"
)

// ErrUpstream is wrapped by every non-success API response.
var ErrUpstream = errors.New("farcaster api error")

// StatusError describes a non-success API response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

// Unwrap makes errors.Is(err, ErrUpstream) hold.
func (e *StatusError) Unwrap() error { return ErrUpstream }

const maxErrorBody = 512

// Client talks to the Neynar API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	signerUUID string
	replyDepth int
	http       *http.Client
	limiter    *rate.Limiter
}

// New returns a Client configured from cfg.
func New(cfg config.FarcasterConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		signerUUID: cfg.SignerUUID,
		replyDepth: cfg.ReplyDepth,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

type conversationResponse struct {
	Conversation struct {
		Cast *domain.CastNode `json:"cast"`
	} `json:"conversation"`
}

// FetchConversation returns the cast tree rooted at hash, nested up to the
// configured reply depth.
func (c *Client) FetchConversation(ctx context.Context, hash string) (*domain.CastNode, error) {
	q := url.Values{}
	q.Set("identifier", hash)
	q.Set("type", "hash")
	if c.replyDepth > 0 {
		q.Set("reply_depth", strconv.Itoa(c.replyDepth))
	}
	q.Set("include_chronological_parent_casts", "false")

	var out conversationResponse
	if err := c.do(ctx, "fetch conversation", http.MethodGet, "/v2/farcaster/cast/conversation?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Conversation.Cast == nil {
		return nil, fmt.Errorf("fetch conversation: %w: missing conversation.cast", ErrUpstream)
	}
	return out.Conversation.Cast, nil
}

type publishRequest struct {
	SignerUUID string `json:"signer_uuid"`
	Text       string `json:"text"`
	Parent     string `json:"parent,omitempty"`
}

type publishResponse struct {
	Success bool `json:"success"`
	Cast    struct {
		Hash string `json:"hash"`
	} `json:"cast"`
}

// PublishReply creates a cast with text under parentHash and returns the new
// cast's hash.
func (c *Client) PublishReply(ctx context.Context, text, parentHash string) (string, error) {
	body, err := json.Marshal(publishRequest{SignerUUID: c.signerUUID, Text: text, Parent: parentHash})
	if err != nil {
		return "", err
	}
	var out publishResponse
	if err := c.do(ctx, "publish cast", http.MethodPost, "/v2/farcaster/cast", body, &out); err != nil {
		return "", err
	}
	if out.Cast.Hash == "" {
		return "", fmt.Errorf("publish cast: %w: response without cast hash", ErrUpstream)
	}
	return out.Cast.Hash, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte, into any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("%s: %w: decode: %w", op, ErrUpstream, err)
	}
	return nil
}

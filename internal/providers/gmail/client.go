package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cfcdist/orderflow/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrNotConfigured marks a mailbox without credentials. Sync treats it as
// "skip this source", never as a failure.
var ErrNotConfigured = errors.New("gmail_not_configured")

const apiBase = "https://gmail.googleapis.com/gmail/v1/users/me"

// Message is one fetched mailbox message with its decoded plain-text body.
type Message struct {
	ID       string
	ThreadID string
	Subject  string
	From     string
	To       string
	Date     string
	Body     string
}

type Client struct {
	log        *zap.Logger
	httpClient *http.Client
	configured bool
}

// New builds a mailbox client around an auto-refreshing OAuth2 token source.
// The refresh token exchange and caching are handled by the oauth2 transport.
func New(cfg config.GmailConfig, log *zap.Logger) *Client {
	c := &Client{
		log:        log.Named("providers.gmail"),
		configured: cfg.Configured(),
	}
	if !c.configured {
		return c
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	c.httpClient = oauthCfg.Client(context.Background(), token)
	c.httpClient.Timeout = 30 * time.Second
	return c
}

func (c *Client) Configured() bool { return c.configured }

// Search returns the ids of messages matching a Gmail query string.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.get(ctx, "/messages?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(out.Messages))
	for _, m := range out.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GetMessage fetches one message in full and decodes its text body. Multipart
// messages use the first text/plain part; HTML-only messages come back with
// an empty body rather than an error.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	var out struct {
		ThreadID string      `json:"threadId"`
		Payload  messagePart `json:"payload"`
	}
	if err := c.get(ctx, "/messages/"+id+"?format=full", &out); err != nil {
		return nil, err
	}

	msg := &Message{ID: id, ThreadID: out.ThreadID}
	for _, h := range out.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = h.Value
		case "date":
			msg.Date = h.Value
		}
	}
	msg.Body = decodeBody(out.Payload)
	return msg, nil
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

func decodeBody(payload messagePart) string {
	if payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body.Data != "" {
			return decodeBase64URL(part.Body.Data)
		}
	}
	return ""
}

func decodeBase64URL(data string) string {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return string(decoded)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("gmail api error", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return fmt.Errorf("gmail api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

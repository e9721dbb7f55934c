package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSendURL is the FCM legacy HTTP send endpoint
	DefaultSendURL = "https://fcm.googleapis.com/fcm/send"

	// MaxTokensPerMulticast is the provider cap on registration tokens per call
	MaxTokensPerMulticast = 500

	defaultTimeout = 15 * time.Second

	// requests per second allowed against the provider
	defaultSendRate = 50
)

// Provider error codes that mean the token is permanently unreachable
const (
	ErrorNotRegistered       = "NotRegistered"
	ErrorInvalidRegistration = "InvalidRegistration"
	ErrorMismatchSenderID    = "MismatchSenderId"
)

// Sender is the remote multicast send operation. Implementations must return
// one SendResult per token, in token order.
type Sender interface {
	SendMulticast(ctx context.Context, title, body string, data map[string]string, tokens []string) (*MulticastResponse, error)
}

// SendResult is the per-token outcome of a multicast call
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// MulticastResponse aggregates the per-token results of one provider call
type MulticastResponse struct {
	SuccessCount int          `json:"successCount"`
	FailureCount int          `json:"failureCount"`
	Results      []SendResult `json:"results"`
}

// IsInvalidToken reports whether the provider error code marks the token as
// permanently unreachable (app uninstalled, token rotated)
func IsInvalidToken(code string) bool {
	return code == ErrorNotRegistered || code == ErrorInvalidRegistration || code == ErrorMismatchSenderID
}

// Client sends multicast pushes over the FCM legacy HTTP API. It is safe for
// concurrent use.
type Client struct {
	url        string
	serverKey  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an FCM client. An empty sendURL falls back to the
// production endpoint.
func NewClient(sendURL, serverKey string) *Client {
	if sendURL == "" {
		sendURL = DefaultSendURL
	}
	return &Client{
		url:        sendURL,
		serverKey:  serverKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultSendRate), defaultSendRate),
	}
}

type sendRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    *notification     `json:"notification,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// SendMulticast pushes one message to up to MaxTokensPerMulticast tokens and
// returns a per-token result slice in token order
func (c *Client) SendMulticast(ctx context.Context, title, body string, data map[string]string, tokens []string) (*MulticastResponse, error) {
	if len(tokens) == 0 {
		return &MulticastResponse{}, nil
	}
	if len(tokens) > MaxTokensPerMulticast {
		return nil, fmt.Errorf("fcm: %d tokens exceeds the %d per-call limit", len(tokens), MaxTokensPerMulticast)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(sendRequest{
		RegistrationIDs: tokens,
		Notification:    &notification{Title: title, Body: body},
		Data:            data,
	})
	if err != nil {
		return nil, fmt.Errorf("fcm: failed to marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("fcm: failed to create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fcm: send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fcm: send returned status %d", resp.StatusCode)
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("fcm: failed to decode send response: %w", err)
	}

	out := &MulticastResponse{
		SuccessCount: decoded.Success,
		FailureCount: decoded.Failure,
		Results:      make([]SendResult, len(decoded.Results)),
	}
	for i, r := range decoded.Results {
		out.Results[i] = SendResult{
			Success:   r.Error == "",
			MessageID: r.MessageID,
			ErrorCode: r.Error,
		}
	}
	return out, nil
}

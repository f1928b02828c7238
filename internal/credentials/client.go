// Package credentials fetches per-session credentials from the companion
// credential server.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"voicefront/internal/dayphase"
	"voicefront/internal/domain"
)

var ErrCredentials = errors.New("credential request failed")

// Client requests signed session credentials.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		logger:  logger,
	}
}

// Fetch asks for credentials for the given day phase.
func (c *Client) Fetch(ctx context.Context, phase dayphase.Phase) (domain.Credentials, error) {
	if phase == "" {
		phase = dayphase.Day
	}
	endpoint := c.baseURL + "/api/signed-url/" + url.PathEscape(string(phase))

	var creds domain.Credentials
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&creds).
		Get(endpoint)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	if resp.IsError() {
		c.logger.Warn("credential endpoint rejected request",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode()),
		)
		return domain.Credentials{}, fmt.Errorf("%w: status %d", ErrCredentials, resp.StatusCode())
	}
	if creds.SignedURL == "" {
		return domain.Credentials{}, fmt.Errorf("%w: response has no signed url", ErrCredentials)
	}
	return creds, nil
}

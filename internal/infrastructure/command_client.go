package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/pulldown-go/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientIDHeader identifies this client session to the backend
const ClientIDHeader = "X-Client-ID"

// CommandClientConfig configures the REST command channel
type CommandClientConfig struct {
	BaseURL   string
	ClientID  string
	Timeout   time.Duration // 0 = no timeout
	RateLimit int           // requests per second, 0 = unlimited
}

// CommandClient issues start/pause/resume requests to the backend
type CommandClient struct {
	baseURL  string
	clientID string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// CommandError is returned when the backend answers with a non-2xx status
type CommandError struct {
	Action     domain.CommandAction
	StatusCode int
	Body       string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("backend rejected %s: status %d: %s", e.Action, e.StatusCode, e.Body)
}

// NewCommandClient creates a new command client
func NewCommandClient(config CommandClientConfig, logger *zap.Logger) *CommandClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RateLimit > 0 {
		// burst equals one second of requests
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}

	return &CommandClient{
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		clientID: config.ClientID,
		http:     &http.Client{Timeout: config.Timeout},
		limiter:  limiter,
		logger:   logger,
	}
}

// StartDownload handles POST /download
func (c *CommandClient) StartDownload(ctx context.Context, url string) error {
	return c.Do(ctx, domain.Command{Action: domain.ActionDownload, URL: url})
}

// PauseDownload handles POST /pause
func (c *CommandClient) PauseDownload(ctx context.Context, url string) error {
	return c.Do(ctx, domain.Command{Action: domain.ActionPause, URL: url})
}

// ResumeDownload handles POST /resume
func (c *CommandClient) ResumeDownload(ctx context.Context, url string) error {
	return c.Do(ctx, domain.Command{Action: domain.ActionResume, URL: url})
}

// Do sends one command as POST /<action> {"url": ...}
func (c *CommandClient) Do(ctx context.Context, cmd domain.Command) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"url": cmd.URL})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", cmd.Action, err)
	}

	endpoint := c.baseURL + "/" + string(cmd.Action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", cmd.Action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientID != "" {
		req.Header.Set(ClientIDHeader, c.clientID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", cmd.Action, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	c.logger.Debug("Command sent",
		zap.String("action", string(cmd.Action)),
		zap.String("url", cmd.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &CommandError{
			Action:     cmd.Action,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}

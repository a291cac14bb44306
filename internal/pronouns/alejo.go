package pronouns

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pngtuber-brain/internal/logging"
)

const (
	DefaultAlejoURL     = "https://pronouns.alejo.io/api/users/"
	DefaultAlejoTimeout = 2 * time.Second
	maxBodyBytes        = 64 << 10
)

// Lookup resolves a platform login to a pronoun set.
type Lookup interface {
	Lookup(ctx context.Context, login string) (Set, bool)
}

type AlejoClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewAlejoClient builds a client. rps <= 0 disables rate limiting.
func NewAlejoClient(baseURL string, timeout time.Duration, rps float64, logger *zap.Logger) *AlejoClient {
	if baseURL == "" {
		baseURL = DefaultAlejoURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = DefaultAlejoTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return &AlejoClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logging.OrNop(logger).Named("alejo"),
	}
}

type alejoEntry struct {
	Name      string `json:"name"`
	PronounID string `json:"pronoun_id"`
}

func (e alejoEntry) id() string {
	if e.Name != "" {
		return e.Name
	}
	return e.PronounID
}

// Lookup returns false for any failure; a missing user is not an error.
func (c *AlejoClient) Lookup(ctx context.Context, login string) (Set, bool) {
	login = strings.TrimSpace(login)
	if login == "" {
		return Set{}, false
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Set{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(login), nil)
	if err != nil {
		c.logger.Warn("build request", zap.String("login", login), zap.Error(err))
		return Set{}, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("pronoun lookup failed", zap.String("login", login), zap.Error(err))
		return Set{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode != http.StatusNotFound {
			c.logger.Warn("pronoun lookup status", zap.String("login", login), zap.Int("status", resp.StatusCode))
		}
		return Set{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("read pronoun response", zap.String("login", login), zap.Error(err))
		return Set{}, false
	}
	id, err := parseAlejo(body)
	if err != nil || id == "" {
		c.logger.Debug("no pronoun id in response", zap.String("login", login), zap.Error(err))
		return Set{}, false
	}
	return MapFromID(id), true
}

// parseAlejo accepts either a single object or an array of objects.
func parseAlejo(body []byte) (string, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", fmt.Errorf("empty body")
	}
	if strings.HasPrefix(trimmed, "[") {
		var entries []alejoEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return "", fmt.Errorf("decode array: %w", err)
		}
		for _, e := range entries {
			if id := e.id(); id != "" {
				return id, nil
			}
		}
		return "", nil
	}
	var e alejoEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return "", fmt.Errorf("decode object: %w", err)
	}
	return e.id(), nil
}

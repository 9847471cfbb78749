// Package recommend provides the natural-language recommendation adapter.
// The catalog projection plus an occasion string go in, a ranked subset
// with persuasive descriptions comes back; the response text itself is
// treated as opaque data.
package recommend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhelttu/closet-go/internal/errors"
	"github.com/jhelttu/closet-go/internal/logging"
	"github.com/patrickmn/go-cache"
)

// DefaultCount is used when the caller does not specify how many
// recommendations it wants.
const DefaultCount = 5

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
	cache      *cache.Cache
	log        *slog.Logger
}

// NewClient creates a new recommendation client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("recommendation API key is required").
			Category(errors.CategoryConfiguration).
			Component("recommend").
			Build()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}

	log := logging.ForService("recommend")
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		cache:      cache.New(config.CacheTTL, config.CacheTTL*2),
		log:        log,
	}, nil
}

// Recommend asks the model for up to n items matching the occasion.
// Identical catalog/occasion/n combinations are served from cache for the
// configured TTL.
func (c *Client) Recommend(ctx context.Context, items []Item, occasion string, n int) (*Result, error) {
	if len(items) == 0 {
		return nil, errors.Newf("no catalog items to recommend from").
			Component("recommend").
			Category(errors.CategoryValidation).
			Build()
	}
	if occasion == "" {
		return nil, errors.Newf("occasion is required").
			Component("recommend").
			Category(errors.CategoryValidation).
			Build()
	}
	if n <= 0 {
		n = DefaultCount
	}

	cacheKey, err := c.cacheKey(items, occasion, n)
	if err == nil {
		if cached, found := c.cache.Get(cacheKey); found {
			c.log.Debug("recommendation cache hit", "occasion", occasion)
			return cached.(*Result), nil
		}
	}

	requestID := uuid.NewString()
	start := time.Now()

	prompt, err := buildPrompt(items, occasion, n)
	if err != nil {
		return nil, err
	}

	result, err := c.complete(ctx, prompt, requestID)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		c.cache.Set(cacheKey, result, cache.DefaultExpiration)
	}
	c.log.Info("recommendations fetched",
		"request_id", requestID,
		"occasion", occasion,
		"catalog_size", len(items),
		"returned", len(result.Recommendations),
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// complete performs one chat completion round trip and parses the JSON
// body of the reply.
func (c *Client) complete(ctx context.Context, prompt []chatMessage, requestID string) (*Result, error) {
	payload := chatRequest{
		Model:       c.config.Model,
		Messages:    prompt,
		MaxTokens:   300,
		Temperature: 0.7,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryNetwork).
			Build()
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryNetwork).
			Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryNetwork).
			Context("request_id", requestID).
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryNetwork).
			Context("request_id", requestID).
			Build()
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, errors.Newf("malformed completion response: %v", err).
			Component("recommend").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Build()
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, errors.Newf("completion request failed: %s", msg).
			Component("recommend").
			Category(errors.CategoryHTTP).
			Context("status_code", resp.StatusCode).
			Context("request_id", requestID).
			Build()
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.Newf("completion response has no choices").
			Component("recommend").
			Category(errors.CategoryHTTP).
			Build()
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	content = stripCodeFence(content)

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, errors.Newf("completion content is not valid recommendation JSON: %v", err).
			Component("recommend").
			Category(errors.CategoryHTTP).
			Context("request_id", requestID).
			Build()
	}
	return &result, nil
}

// buildPrompt renders the system and user messages for one request.
func buildPrompt(items []Item, occasion string, n int) ([]chatMessage, error) {
	itemJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, errors.New(err).
			Component("recommend").
			Category(errors.CategoryValidation).
			Build()
	}

	user := fmt.Sprintf(`Based on the following clothing items:
%s

Recommend %d items whose attributes and style match the occasion: %s. If there are less than %d recommendations, you can list them all but no duplicates.
Each identifier should be exactly the same as the ID of the target item, and only appear once. Each recommendation should include:
- "id": The ID from item's metadata. Must be exactly the same as the ID of the target item.
- "description": A persuasive explanation of why this item is a great choice for the occasion, highlighting its features, aesthetics, and how it complements the context. Limit the range to 20-40 words.

Ensure the descriptions are detailed and highlight how each recommendation enhances the user's style and confidence. Provide the output strictly in valid JSON format, ensuring it is ready for JSON parsing. Example format:
{
    "recommendations": [
        {"id": "1", "description": "This is a stunning choice because..."},
        {"id": "2", "description": "This fits perfectly for the occasion due to..."}
    ]
}`, itemJSON, n, occasion, n)

	return []chatMessage{
		{Role: "system", Content: "You are a professional fashion recommendation assistant who provides detailed, personalized, and persuasive fashion advice."},
		{Role: "user", Content: user},
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence some models wrap
// their JSON output in.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// cacheKey hashes the full request so equal inputs share one cache slot.
func (c *Client) cacheKey(items []Item, occasion string, n int) (string, error) {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(items); err != nil {
		return "", err
	}
	fmt.Fprintf(h, "%s|%d", occasion, n)
	return hex.EncodeToString(h.Sum(nil)), nil
}

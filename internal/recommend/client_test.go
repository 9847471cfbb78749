package recommend

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhelttu/closet-go/internal/errors"
)

const testEndpoint = "https://api.test.invalid/v1/chat/completions"

// newTestClient creates a client with httpmock installed on its transport.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: "https://api.test.invalid/v1",
	})
	require.NoError(t, err)

	httpmock.ActivateNonDefault(client.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func testItems() []Item {
	return []Item{
		{ID: "1", SubCategory: "Topwear", TypeOfClothing: "Tshirts", Gender: "Men", BaseColour: "Blue", Season: "Summer", Usage: "Casual"},
		{ID: "2", SubCategory: "Bottomwear", TypeOfClothing: "Jeans", Gender: "Men", BaseColour: "Navy Blue", Season: "Fall", Usage: "Casual"},
	}
}

// completionResponse builds a chat completion body whose message content is
// the given string.
func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestNewClientFillsDefaults(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", client.config.Model)
	assert.Equal(t, "https://api.openai.com/v1", client.config.BaseURL)
	assert.Equal(t, 30*time.Second, client.config.Timeout)
}

func TestRecommend(t *testing.T) {
	client := newTestClient(t)

	content := `{"recommendations": [{"id": "2", "description": "Great for a casual day out."}]}`
	responder, err := httpmock.NewJsonResponder(http.StatusOK, completionResponse(content))
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)

	result, err := client.Recommend(context.Background(), testItems(), "casual friday", 3)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "2", result.Recommendations[0].ID)
	assert.Equal(t, "Great for a casual day out.", result.Recommendations[0].Description)
}

func TestRecommendStripsCodeFence(t *testing.T) {
	client := newTestClient(t)

	content := "```json\n{\"recommendations\": [{\"id\": \"1\", \"description\": \"A clean summer staple.\"}]}\n```"
	responder, err := httpmock.NewJsonResponder(http.StatusOK, completionResponse(content))
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)

	result, err := client.Recommend(context.Background(), testItems(), "summer picnic", 1)
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "1", result.Recommendations[0].ID)
}

func TestRecommendServesRepeatFromCache(t *testing.T) {
	client := newTestClient(t)

	content := `{"recommendations": [{"id": "1", "description": "Cached pick."}]}`
	responder, err := httpmock.NewJsonResponder(http.StatusOK, completionResponse(content))
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)

	_, err = client.Recommend(context.Background(), testItems(), "wedding", 2)
	require.NoError(t, err)
	_, err = client.Recommend(context.Background(), testItems(), "wedding", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "second identical request must hit the cache")

	// A different occasion misses the cache.
	_, err = client.Recommend(context.Background(), testItems(), "job interview", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestRecommendAPIError(t *testing.T) {
	client := newTestClient(t)

	body := map[string]any{
		"error": map[string]any{"message": "Rate limit reached", "type": "rate_limit_error"},
	}
	responder, err := httpmock.NewJsonResponder(http.StatusTooManyRequests, body)
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)

	_, err = client.Recommend(context.Background(), testItems(), "gala", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestRecommendMalformedContent(t *testing.T) {
	client := newTestClient(t)

	responder, err := httpmock.NewJsonResponder(http.StatusOK, completionResponse("sorry, I cannot help with that"))
	require.NoError(t, err)
	httpmock.RegisterResponder(http.MethodPost, testEndpoint, responder)

	_, err = client.Recommend(context.Background(), testItems(), "party", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
}

func TestRecommendValidation(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Recommend(context.Background(), nil, "party", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = client.Recommend(context.Background(), testItems(), "", 2)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}

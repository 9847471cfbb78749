package recommend

import "time"

// Item is the catalog record projection supplied to the recommender.
// Field names follow the wire contract of the recommendation prompt.
type Item struct {
	ID             string `json:"id"`
	SubCategory    string `json:"subCategory"`
	TypeOfClothing string `json:"typeOfClothing"`
	Gender         string `json:"gender"`
	BaseColour     string `json:"baseColour"`
	Season         string `json:"season"`
	Usage          string `json:"usage"`
}

// Recommendation is one ranked pick with its persuasive description.
type Recommendation struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Result is the adapter's parsed response.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// Config holds the recommendation client settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.openai.com/v1",
		Model:    "gpt-4",
		Timeout:  30 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// chat completion wire types, request side
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chat completion wire types, response side
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

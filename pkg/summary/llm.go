package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/models"
	"callmonitor/pkg/version"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLLMURL is an OpenAI-compatible chat completions endpoint
	DefaultLLMURL   = "https://api.openai.com/v1/chat/completions"
	DefaultLLMModel = "gpt-4o-mini"

	// only the tail of long calls is sent
	llmTranscriptLines = 20

	systemPrompt = "You are a contact center AI analyst. Return ONLY valid JSON, no markdown."
	promptHeader = `Summarize this call transcript. Return ONLY valid JSON:
{"overall_sentiment": <float -1 to 1>, "sentiment_trend": "<improving|stable|declining>", "primary_issue": "<brief>", "topics_discussed": ["<t1>","<t2>"], "risk_level": "<low|medium|high|critical>", "churn_probability": <float 0-1>, "recommended_actions": ["<a1>","<a2>"]}

Transcript:
`
)

var (
	fenceOpen  = regexp.MustCompile("^```\\w*\\n?")
	fenceClose = regexp.MustCompile("\\n?```$")
)

// Summarizer produces a summary for a finished transcript
type Summarizer interface {
	Summarize(ctx context.Context, transcript []models.Utterance) (models.Summary, error)
	Name() string
}

// LLMConfig configures LLMClient
type LLMConfig struct {
	APIKey string
	APIURL string
	Model  string
}

// LLMClient asks an OpenAI-compatible chat endpoint for a JSON summary
type LLMClient struct {
	logger *logrus.Logger
	config LLMConfig
	client *http.Client
}

// NewLLMClient creates a client; it does not contact the endpoint
func NewLLMClient(logger *logrus.Logger, config LLMConfig, client *http.Client) *LLMClient {
	if config.APIURL == "" {
		config.APIURL = DefaultLLMURL
	}
	if config.Model == "" {
		config.Model = DefaultLLMModel
	}
	if client == nil {
		client = &http.Client{}
	}
	return &LLMClient{logger: logger, config: config, client: client}
}

// Name returns the summarizer name
func (c *LLMClient) Name() string {
	return "llm"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// llmSummary uses pointers so missing fields can be told apart from zero values
type llmSummary struct {
	OverallSentiment   *float64 `json:"overall_sentiment"`
	SentimentTrend     string   `json:"sentiment_trend"`
	PrimaryIssue       string   `json:"primary_issue"`
	TopicsDiscussed    []string `json:"topics_discussed"`
	RiskLevel          string   `json:"risk_level"`
	ChurnProbability   *float64 `json:"churn_probability"`
	RecommendedActions []string `json:"recommended_actions"`
}

// Summarize sends the transcript tail and validates the returned JSON
func (c *LLMClient) Summarize(ctx context.Context, transcript []models.Utterance) (models.Summary, error) {
	if c.config.APIKey == "" {
		return models.Summary{}, errors.Wrap(errors.ErrSummarizerUnavailable, "LLM API key is not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(transcript)},
		},
	})
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to encode LLM request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, bytes.NewReader(body))
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to create LLM request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to send request to LLM API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.Summary{}, fmt.Errorf("LLM API returned non-200 status code: %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return models.Summary{}, fmt.Errorf("failed to decode LLM response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return models.Summary{}, fmt.Errorf("no choices in LLM response")
	}

	s, err := ParseSummary(chat.Choices[0].Message.Content)
	if err != nil {
		return models.Summary{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"risk_level":    s.RiskLevel,
		"primary_issue": s.PrimaryIssue,
	}).Debug("LLM summary received")
	return s, nil
}

// BuildPrompt renders the last lines of the transcript as "Role: text"
func BuildPrompt(transcript []models.Utterance) string {
	if len(transcript) > llmTranscriptLines {
		transcript = transcript[len(transcript)-llmTranscriptLines:]
	}
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, u := range transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		role := "Agent"
		if u.Speaker == models.SpeakerCustomer {
			role = "Customer"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(u.Text)
	}
	return b.String()
}

// ParseSummary decodes a model reply, tolerating a surrounding code fence.
// Replies missing a field or carrying out-of-range values are rejected.
func ParseSummary(reply string) (models.Summary, error) {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = fenceOpen.ReplaceAllString(cleaned, "")
		cleaned = fenceClose.ReplaceAllString(cleaned, "")
	}

	var raw llmSummary
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return models.Summary{}, fmt.Errorf("LLM reply is not valid JSON: %w", err)
	}

	switch {
	case raw.OverallSentiment == nil || *raw.OverallSentiment < -1 || *raw.OverallSentiment > 1:
		return models.Summary{}, fmt.Errorf("LLM reply has invalid overall_sentiment")
	case raw.ChurnProbability == nil || *raw.ChurnProbability < 0 || *raw.ChurnProbability > 1:
		return models.Summary{}, fmt.Errorf("LLM reply has invalid churn_probability")
	case raw.PrimaryIssue == "":
		return models.Summary{}, fmt.Errorf("LLM reply has no primary_issue")
	}

	trend := models.Trend(raw.SentimentTrend)
	switch trend {
	case models.TrendImproving, models.TrendStable, models.TrendDeclining:
	default:
		return models.Summary{}, fmt.Errorf("LLM reply has invalid sentiment_trend %q", raw.SentimentTrend)
	}

	risk := models.RiskLevel(raw.RiskLevel)
	switch risk {
	case models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical:
	default:
		return models.Summary{}, fmt.Errorf("LLM reply has invalid risk_level %q", raw.RiskLevel)
	}

	topics := raw.TopicsDiscussed
	if topics == nil {
		topics = []string{}
	}
	actions := raw.RecommendedActions
	if actions == nil {
		actions = []string{}
	}

	return models.Summary{
		OverallSentiment:   *raw.OverallSentiment,
		SentimentTrend:     trend,
		PrimaryIssue:       raw.PrimaryIssue,
		TopicsDiscussed:    topics,
		RiskLevel:          risk,
		ChurnProbability:   *raw.ChurnProbability,
		RecommendedActions: actions,
	}, nil
}

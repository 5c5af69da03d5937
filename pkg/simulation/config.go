package simulation

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"callmonitor/pkg/errors"
)

// Sentiment distributions
const (
	DistributionNormal   = "normal"
	DistributionPositive = "positive"
	DistributionNegative = "negative"
)

const (
	DefaultNumCalls        = 12
	DefaultIssueFrequency  = 0.3
	DefaultMessageInterval = 4 * time.Second

	MinMessageInterval = time.Second
	MaxMessageInterval = 60 * time.Second
)

// Config is the running simulation configuration. Values are copied, never
// shared, so a snapshot cannot change under a reader.
type Config struct {
	NumCalls              int
	IssueFrequency        float64
	SentimentDistribution string
	MessageInterval       time.Duration
}

// DefaultConfig returns the configuration a fresh engine starts with
func DefaultConfig() Config {
	return Config{
		NumCalls:              DefaultNumCalls,
		IssueFrequency:        DefaultIssueFrequency,
		SentimentDistribution: DistributionNormal,
		MessageInterval:       DefaultMessageInterval,
	}
}

type configJSON struct {
	NumCalls              int     `json:"num_calls"`
	IssueFrequency        float64 `json:"issue_frequency"`
	SentimentDistribution string  `json:"sentiment_distribution"`
	MessageInterval       float64 `json:"message_interval"`
}

// MarshalJSON writes the interval in seconds
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configJSON{
		NumCalls:              c.NumCalls,
		IssueFrequency:        c.IssueFrequency,
		SentimentDistribution: c.SentimentDistribution,
		MessageInterval:       c.MessageInterval.Seconds(),
	})
}

// Validate checks every field against its bounds
func (c Config) Validate() error {
	if c.NumCalls < 0 || c.NumCalls > AgentCatalogSize() {
		return errors.NewInvalidInput(
			fmt.Sprintf("num_calls must be between 0 and %d", AgentCatalogSize()),
			map[string]interface{}{"field": "num_calls", "value": c.NumCalls},
		)
	}
	if math.IsNaN(c.IssueFrequency) || c.IssueFrequency < 0 || c.IssueFrequency > 1 {
		return errors.NewInvalidInput("issue_frequency must be between 0 and 1",
			map[string]interface{}{"field": "issue_frequency", "value": c.IssueFrequency})
	}
	switch c.SentimentDistribution {
	case DistributionNormal, DistributionPositive, DistributionNegative:
	default:
		return errors.NewInvalidInput("sentiment_distribution must be normal, positive or negative",
			map[string]interface{}{"field": "sentiment_distribution", "value": c.SentimentDistribution})
	}
	if c.MessageInterval < MinMessageInterval || c.MessageInterval > MaxMessageInterval {
		return intervalError(c.MessageInterval.Seconds())
	}
	return nil
}

func intervalError(secs float64) error {
	return errors.NewInvalidInput(
		fmt.Sprintf("message_interval must be between %d and %d seconds",
			int(MinMessageInterval.Seconds()), int(MaxMessageInterval.Seconds())),
		map[string]interface{}{"field": "message_interval", "value": secs},
	)
}

// ConfigUpdate is a partial configuration change. MessageInterval is in
// seconds, as sent by dashboard clients and written in reload files.
type ConfigUpdate struct {
	NumCalls              *int     `json:"num_calls,omitempty" yaml:"num_calls,omitempty"`
	IssueFrequency        *float64 `json:"issue_frequency,omitempty" yaml:"issue_frequency,omitempty"`
	SentimentDistribution *string  `json:"sentiment_distribution,omitempty" yaml:"sentiment_distribution,omitempty"`
	MessageInterval       *float64 `json:"message_interval,omitempty" yaml:"message_interval,omitempty"`
}

// Empty reports whether the update changes nothing
func (u ConfigUpdate) Empty() bool {
	return u.NumCalls == nil && u.IssueFrequency == nil && u.SentimentDistribution == nil && u.MessageInterval == nil
}

// Merge applies the update on top of c and validates the result
func (c Config) Merge(u ConfigUpdate) (Config, error) {
	out := c
	if u.NumCalls != nil {
		out.NumCalls = *u.NumCalls
	}
	if u.IssueFrequency != nil {
		out.IssueFrequency = *u.IssueFrequency
	}
	if u.SentimentDistribution != nil {
		out.SentimentDistribution = *u.SentimentDistribution
	}
	if u.MessageInterval != nil {
		secs := *u.MessageInterval
		// checked before conversion so huge values cannot overflow
		if math.IsNaN(secs) || secs < MinMessageInterval.Seconds() || secs > MaxMessageInterval.Seconds() {
			return c, intervalError(secs)
		}
		out.MessageInterval = time.Duration(secs * float64(time.Second))
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

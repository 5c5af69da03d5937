package circuitbreaker

import "time"

// SummarizerConfig suits the network summarizer, which is slow and may be
// absent entirely. The request timeout is left to the caller.
func SummarizerConfig() *Config {
	return &Config{
		FailureThreshold:   3,
		SuccessThreshold:   1,
		Timeout:            30 * time.Second,
		MaxTimeout:         5 * time.Minute,
		ExponentialBackoff: true,
	}
}

// AMQPConfig suits broker publishing
func AMQPConfig() *Config {
	return &Config{
		FailureThreshold:   5,
		SuccessThreshold:   2,
		Timeout:            15 * time.Second,
		MaxTimeout:         2 * time.Minute,
		RequestTimeout:     5 * time.Second,
		ExponentialBackoff: true,
	}
}

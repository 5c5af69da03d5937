package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"callmonitor/pkg/errors"
	"callmonitor/pkg/simulation"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config represents the complete application configuration
type Config struct {
	HTTP       HTTPConfig       `json:"http"`
	Logging    LoggingConfig    `json:"logging"`
	Simulation SimulationConfig `json:"simulation"`
	Store      StoreConfig      `json:"store"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Messaging  MessagingConfig  `json:"messaging"`
	Auth       AuthConfig       `json:"auth"`
	Events     EventsConfig     `json:"events"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	EnableMetrics   bool          `json:"enable_metrics"`
	CORSOrigins     []string      `json:"cors_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	OutputFile string `json:"output_file"`
}

// SimulationConfig holds the engine's startup settings
type SimulationConfig struct {
	Engine    simulation.Config `json:"engine"`
	AutoStart bool              `json:"auto_start"`
	Workers   int               `json:"workers"`
	// Seed of 0 means time based
	Seed int64 `json:"seed"`
	// ConfigFile is watched for live changes when set
	ConfigFile string `json:"config_file"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver       string `json:"driver"`
	SQLitePath   string `json:"sqlite_path"`
	CleanOnStart bool   `json:"clean_on_start"`
}

// SummarizerConfig configures the optional LLM summarizer
type SummarizerConfig struct {
	APIKey  string        `json:"-"`
	APIURL  string        `json:"api_url"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

// Enabled reports whether the network summarizer is configured
func (s SummarizerConfig) Enabled() bool {
	return s.APIKey != ""
}

// MessagingConfig holds AMQP settings
type MessagingConfig struct {
	AMQPURL    string `json:"-"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key"`
	QueueName  string `json:"queue_name"`
	Durable    bool   `json:"durable"`
}

// Enabled reports whether events are forwarded to a broker
func (m MessagingConfig) Enabled() bool {
	return m.AMQPURL != ""
}

// AuthConfig maps API keys to user ids
type AuthConfig struct {
	APIKeys map[string]string `json:"-"`
}

// Enabled reports whether requests must carry an API key
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0
}

// EventsConfig tunes the event broker
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Load reads the configuration from .env files and the environment
func Load(logger *logrus.Logger) (*Config, error) {
	loadEnvFile(logger)

	config := &Config{}
	loadHTTPConfig(logger, &config.HTTP)
	loadLoggingConfig(logger, &config.Logging)
	loadSimulationConfig(logger, &config.Simulation)
	loadStoreConfig(&config.Store)
	loadSummarizerConfig(&config.Summarizer)
	loadMessagingConfig(logger, &config.Messaging)
	if err := loadAuthConfig(logger, &config.Auth); err != nil {
		return nil, errors.Wrap(err, "failed to load auth configuration")
	}
	config.Events.BufferSize = getEnvInt("EVENT_BUFFER_SIZE", 256)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadEnvFile(logger *logrus.Logger) {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	possibleEnvFiles := []string{
		".env",
		"../.env",
		filepath.Join(wd, ".env"),
	}

	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr != nil {
			continue
		}
		absPath, _ := filepath.Abs(envFile)
		if err := godotenv.Load(envFile); err != nil {
			logger.WithError(err).WithField("path", absPath).Warn("Failed to load .env file")
			continue
		}
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        absPath,
		}).Info("Loaded .env file")
		return
	}
	logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
}

func loadHTTPConfig(logger *logrus.Logger, config *HTTPConfig) {
	config.Port = getEnvInt("HTTP_PORT", 8000)
	if config.Port < 1 || config.Port > 65535 {
		logger.Warn("Invalid HTTP_PORT value, using default: 8000")
		config.Port = 8000
	}
	config.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	config.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	config.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	config.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)
	config.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
}

func loadLoggingConfig(logger *logrus.Logger, config *LoggingConfig) {
	config.Level = getEnv("LOG_LEVEL", "info")
	if _, err := logrus.ParseLevel(config.Level); err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", config.Level)
		config.Level = "info"
	}

	config.Format = getEnv("LOG_FORMAT", "json")
	if config.Format != "json" && config.Format != "text" {
		logger.Warn("Invalid LOG_FORMAT, must be 'json' or 'text', defaulting to 'json'")
		config.Format = "json"
	}

	config.OutputFile = getEnv("LOG_OUTPUT_FILE", "")
}

func loadSimulationConfig(logger *logrus.Logger, config *SimulationConfig) {
	config.Engine = simulation.Config{
		NumCalls:              getEnvInt("SIM_NUM_CALLS", simulation.DefaultNumCalls),
		IssueFrequency:        getEnvFloat("SIM_ISSUE_FREQUENCY", simulation.DefaultIssueFrequency),
		SentimentDistribution: getEnv("SIM_SENTIMENT_DISTRIBUTION", simulation.DistributionNormal),
		MessageInterval:       getEnvDuration("SIM_MESSAGE_INTERVAL", simulation.DefaultMessageInterval),
	}
	config.AutoStart = getEnvBool("SIM_AUTO_START", true)
	config.Workers = getEnvInt("SIM_WORKERS", 4)
	config.Seed = int64(getEnvInt("SIM_SEED", 0))
	config.ConfigFile = getEnv("SIM_CONFIG_FILE", "")

	logger.WithFields(logrus.Fields{
		"num_calls":        config.Engine.NumCalls,
		"issue_frequency":  config.Engine.IssueFrequency,
		"distribution":     config.Engine.SentimentDistribution,
		"message_interval": config.Engine.MessageInterval.String(),
		"auto_start":       config.AutoStart,
	}).Debug("Simulation configuration loaded")
}

func loadStoreConfig(config *StoreConfig) {
	config.Driver = strings.ToLower(getEnv("STORE_DRIVER", StoreMemory))
	config.SQLitePath = getEnv("STORE_SQLITE_PATH", "callmonitor.db")
	config.CleanOnStart = getEnvBool("STORE_CLEAN_ON_START", true)
}

func loadSummarizerConfig(config *SummarizerConfig) {
	config.APIKey = getEnv("LLM_API_KEY", "")
	config.APIURL = getEnv("LLM_API_URL", "https://api.openai.com/v1/chat/completions")
	config.Model = getEnv("LLM_MODEL", "gpt-4o-mini")
	config.Timeout = getEnvDuration("LLM_TIMEOUT", 10*time.Second)
}

func loadMessagingConfig(logger *logrus.Logger, config *MessagingConfig) {
	config.AMQPURL = getEnv("AMQP_URL", "")
	config.Exchange = getEnv("AMQP_EXCHANGE", "callmonitor")
	config.QueueName = getEnv("AMQP_QUEUE_NAME", "")
	config.RoutingKey = getEnv("AMQP_ROUTING_KEY", "events")
	config.Durable = getEnvBool("AMQP_DURABLE", true)

	if config.Enabled() {
		logger.WithFields(logrus.Fields{
			"exchange":    config.Exchange,
			"routing_key": config.RoutingKey,
			"queue":       config.QueueName,
		}).Info("AMQP event forwarding enabled")
	}
}

// loadAuthConfig parses API_KEYS as a comma separated list of key:user_id
func loadAuthConfig(logger *logrus.Logger, config *AuthConfig) error {
	config.APIKeys = make(map[string]string)
	for _, entry := range splitList(getEnv("API_KEYS", "")) {
		key, user, ok := strings.Cut(entry, ":")
		key, user = strings.TrimSpace(key), strings.TrimSpace(user)
		if !ok || key == "" || user == "" {
			return errors.NewInvalidInput("API_KEYS entries must be key:user_id", map[string]interface{}{"entry_index": len(config.APIKeys)})
		}
		config.APIKeys[key] = user
	}

	if config.Enabled() {
		logger.WithField("key_count", len(config.APIKeys)).Info("API key authentication enabled")
	} else {
		logger.Debug("Authentication disabled")
	}
	return nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return errors.NewInvalidInput("STORE_SQLITE_PATH is required for the sqlite store")
		}
	default:
		return errors.NewInvalidInput(fmt.Sprintf("unknown STORE_DRIVER: %s", c.Store.Driver),
			map[string]interface{}{"driver": c.Store.Driver})
	}

	if err := c.Simulation.Engine.Validate(); err != nil {
		return errors.Wrap(err, "invalid simulation configuration")
	}
	if c.Simulation.Workers < 1 {
		return errors.NewInvalidInput("SIM_WORKERS must be at least 1")
	}
	if c.Events.BufferSize < 1 {
		return errors.NewInvalidInput("EVENT_BUFFER_SIZE must be at least 1")
	}
	if c.Summarizer.Enabled() && c.Summarizer.Timeout <= 0 {
		return errors.NewInvalidInput("LLM_TIMEOUT must be a positive duration")
	}

	if c.Logging.OutputFile != "" {
		f, err := os.OpenFile(c.Logging.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("cannot write to log file: %s", c.Logging.OutputFile))
		}
		f.Close()
	}
	return nil
}

// ApplyLogging applies the logging section to the logger
func (c *Config) ApplyLogging(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}
	logger.SetLevel(level)

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if c.Logging.OutputFile != "" {
		f, err := os.OpenFile(c.Logging.OutputFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to open log file: %s", c.Logging.OutputFile))
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getEnvDuration accepts Go durations ("4s") or plain seconds ("4", "2.5")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil && seconds >= 0 && seconds < 1e6 {
		return time.Duration(seconds * float64(time.Second))
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}

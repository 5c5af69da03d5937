package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callmonitor/pkg/circuitbreaker"
	"callmonitor/pkg/errors"
	"callmonitor/pkg/metrics"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const (
	dialTimeout      = 5 * time.Second
	maxReconnects    = 10
	maxBackoff       = 30 * time.Second
	messageTTLMillis = "43200000" // 12 hours
)

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL          string
	ExchangeName string
	// RoutingKey is the prefix; each message is routed to "<prefix>.<event type>"
	RoutingKey string
	// QueueName is declared and bound when set
	QueueName  string
	Durable    bool
	AutoDelete bool
}

// channel is the part of *amqp.Channel the client publishes through
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPClient publishes JSON messages to a broker and reconnects when the
// connection drops
type AMQPClient struct {
	logger  *logrus.Logger
	config  AMQPConfig
	breaker *circuitbreaker.CircuitBreaker

	connMutex sync.RWMutex
	conn      *amqp.Connection
	channel   channel
	connected bool
	stopped   bool
	stopChan  chan struct{}
}

// NewAMQPClient creates a client; Connect must be called before publishing
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	if config.RoutingKey == "" {
		config.RoutingKey = config.QueueName
	}
	return &AMQPClient{
		logger:   logger,
		config:   config,
		breaker:  circuitbreaker.NewCircuitBreaker("amqp", circuitbreaker.AMQPConfig(), logger),
		stopChan: make(chan struct{}),
	}
}

// Connect dials the broker and declares the exchange and queue
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.stopped {
		c.stopChan = make(chan struct{})
		c.stopped = false
	}
	return c.connectLocked()
}

// reconnect is Connect for the monitor; it gives up once stop has fired
func (c *AMQPClient) reconnect(stop chan struct{}) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.stopped || c.stopChan != stop {
		return fmt.Errorf("AMQP client was disconnected")
	}
	return c.connectLocked()
}

func (c *AMQPClient) connectLocked() error {
	if c.connected {
		return nil
	}
	if c.config.URL == "" {
		return errors.Wrap(errors.ErrInvalidInput, "AMQP URL not configured")
	}
	if c.config.ExchangeName == "" && c.config.QueueName == "" {
		return errors.Wrap(errors.ErrInvalidInput, "AMQP exchange or queue name must be configured")
	}

	conn, err := amqp.DialConfig(c.config.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		metrics.SetAMQPConnectionStatus(false)
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	if err := c.declare(ch); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = ch
	c.connected = true
	metrics.SetAMQPConnectionStatus(true)

	c.logger.WithFields(logrus.Fields{
		"exchange": c.config.ExchangeName,
		"queue":    c.config.QueueName,
	}).Info("Connected to AMQP server")

	go c.monitorConnection(conn, c.stopChan)
	return nil
}

func (c *AMQPClient) declare(ch *amqp.Channel) error {
	if c.config.ExchangeName != "" {
		if err := ch.ExchangeDeclare(c.config.ExchangeName, "topic", c.config.Durable, c.config.AutoDelete, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare AMQP exchange %s: %w", c.config.ExchangeName, err)
		}
	}
	if c.config.QueueName == "" {
		return nil
	}

	if _, err := ch.QueueDeclare(c.config.QueueName, c.config.Durable, c.config.AutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare AMQP queue %s: %w", c.config.QueueName, err)
	}
	if c.config.ExchangeName != "" {
		if err := ch.QueueBind(c.config.QueueName, c.config.RoutingKey+".#", c.config.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind AMQP queue %s: %w", c.config.QueueName, err)
		}
	}
	return nil
}

// Disconnect closes the connection and stops reconnect attempts
func (c *AMQPClient) Disconnect() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if !c.stopped {
		close(c.stopChan)
		c.stopped = true
	}
	if !c.connected {
		return
	}
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
	metrics.SetAMQPConnectionStatus(false)
	c.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// RoutingKeyFor returns the routing key for a message kind
func (c *AMQPClient) RoutingKeyFor(kind string) string {
	if c.config.ExchangeName == "" {
		// the default exchange routes by queue name
		return c.config.QueueName
	}
	if c.config.RoutingKey == "" {
		return kind
	}
	return c.config.RoutingKey + "." + kind
}

// Publish sends one persistent JSON message through the circuit breaker
func (c *AMQPClient) Publish(ctx context.Context, kind string, body []byte) error {
	key := c.RoutingKeyFor(kind)

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		c.connMutex.RLock()
		defer c.connMutex.RUnlock()

		if !c.connected || c.channel == nil {
			return errors.Wrap(errors.ErrNotConnected, "not connected to AMQP server")
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return c.channel.Publish(c.config.ExchangeName, key, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Type:         kind,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Expiration:   messageTTLMillis,
		})
	})

	if err != nil {
		metrics.RecordAMQPPublish(key, "error")
		return fmt.Errorf("failed to publish %s to AMQP: %w", kind, err)
	}
	metrics.RecordAMQPPublish(key, "success")
	return nil
}

// BreakerState exposes the publish circuit breaker state
func (c *AMQPClient) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

// monitorConnection reconnects with exponential backoff when conn closes
func (c *AMQPClient) monitorConnection(conn *amqp.Connection, stop chan struct{}) {
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case <-stop:
		return
	case closeErr := <-closed:
		c.connMutex.Lock()
		c.connected = false
		c.connMutex.Unlock()
		metrics.SetAMQPConnectionStatus(false)
		c.logger.WithError(closeErr).Warn("AMQP connection closed, attempting to reconnect")
	}

	for attempt := 1; attempt <= maxReconnects; attempt++ {
		backoff := time.Duration(1<<uint(attempt-1)) * time.Second
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		select {
		case <-stop:
			return
		case <-time.After(backoff):
		}

		if err := c.reconnect(stop); err != nil {
			c.logger.WithError(err).WithField("attempt", attempt).Error("Failed to reconnect to AMQP server")
			continue
		}
		c.logger.Info("Successfully reconnected to AMQP server")
		return
	}
	c.logger.WithField("attempts", maxReconnects).Error("Giving up reconnecting to AMQP server")
}

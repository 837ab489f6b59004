package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// ErrTimeout is returned by Call when no response arrived in time.
var ErrTimeout = errors.New("request timed out")

// Channel is the subset of *amqp.Channel used by the RPC client and server.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a Channel. *amqp.Connection satisfies it through AMQPConnection.
type Dialer func() (Channel, error)

// AMQPConnection adapts an *amqp.Connection into a Dialer.
func AMQPConnection(conn *amqp.Connection) Dialer {
	return func() (Channel, error) {
		return conn.Channel()
	}
}

func declareExchange(channel Channel, name string) error {
	return channel.ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// Client describes an RPC client with the ability to call remote RPC servers.
type Client struct {
	Logger zerolog.Logger

	// Connection configuration.
	Dial               Dialer
	Exchange           string // Exchange to register our response queues against. Expected to be topic or direct.
	RequestRoutingKey  string // Routing key prefix for requests.
	ResponseRoutingKey string // Routing key prefix for responses (e.g. "rpc.response").

	mu      sync.Mutex
	channel Channel
	replyTo string // assembled routing key for responses
	seq     uint64 // sequence number for request correlation
	callers map[string]chan<- json.RawMessage
}

func (c *Client) setup() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// return if already set up
	if c.channel != nil {
		return nil
	}

	// set up caller map
	c.callers = make(map[string]chan<- json.RawMessage)

	// set up channel
	channel, err := c.Dial()
	if err != nil {
		return err
	}

	// set prefetch
	err = channel.Qos(1, 0, false)
	if err != nil {
		_ = channel.Close()
		return err
	}

	// register the exchange
	err = declareExchange(channel, c.Exchange)
	if err != nil {
		_ = channel.Close()
		return err
	}

	// set up queue
	queue, err := channel.QueueDeclare(
		"",    // name, let server pick
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = channel.Close()
		return err
	}
	replyTo := c.ResponseRoutingKey + "." + queue.Name
	err = channel.QueueBind(
		queue.Name,
		replyTo, // routing key
		c.Exchange,
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = channel.Close()
		return err
	}

	// create delivery channel
	deliveries, err := channel.Consume(
		queue.Name,
		"",
		true,  // autoAck
		true,  // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = channel.Close()
		return err
	}

	c.channel = channel
	c.replyTo = replyTo

	// spawn queue consumer
	go c.consumer(deliveries)

	return nil
}

func (c *Client) consumer(deliveries <-chan amqp.Delivery) {
	logger := c.Logger.With().Str("module", "rpc-consumer").Logger()

	// process deliveries
	for delivery := range deliveries {
		c.mu.Lock()
		callback, ok := c.callers[delivery.CorrelationId]
		c.mu.Unlock()

		// send response out to caller
		if !ok {
			logger.Error().Str("correlation_id", delivery.CorrelationId).Msg("Received response with no caller?")
			continue
		}
		callback <- json.RawMessage(delivery.Body)
	}

	// broker went away, force the next call to reconnect
	c.mu.Lock()
	c.channel = nil
	c.mu.Unlock()
	logger.Warn().Msg("Response queue closed.")
}

// Call makes a RPC call, and initializes the client on first use.
// The returned payload is the raw response body written by the server's handler.
func (c *Client) Call(ctx context.Context, callName string, arguments interface{}, timeout time.Duration) (json.RawMessage, error) {
	// init client
	if err := c.setup(); err != nil {
		return nil, err
	}

	// encode our request
	encodedArgs, err := json.Marshal(arguments)
	if err != nil {
		return nil, err
	}

	// get next ID in sequence for our CorrelationID
	correlationID := strconv.FormatUint(atomic.AddUint64(&c.seq, 1), 10)

	// create correlation channel, buffered so a late response never blocks the consumer
	callback := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.callers[correlationID] = callback
	channel, replyTo := c.channel, c.replyTo
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.callers, correlationID) // prevent a memory leak
		c.mu.Unlock()
	}()
	if channel == nil {
		return nil, errors.New("rpc channel closed")
	}

	// send our request
	err = channel.Publish(
		c.Exchange,
		c.RequestRoutingKey+"."+callName,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       replyTo,
			Timestamp:     time.Now(),
			Expiration:    strconv.FormatInt(timeout.Milliseconds(), 10), // nobody waits for the answer after that
			Body:          encodedArgs,
		},
	)
	if err != nil {
		return nil, err
	}

	// wait for callback
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case result := <-callback:
		return result, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

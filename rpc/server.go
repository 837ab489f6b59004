package rpc

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Handler answers one RPC request body with a response body.
type Handler func([]byte) []byte

// Server describes an RPC server, providing multiple RPC handlers.
type Server struct {
	Handlers map[string]Handler
	Logger   zerolog.Logger

	// Connection configuration
	Dial       Dialer
	Exchange   string // Exchange to register our request queues against. Expected to be topic or direct.
	RoutingKey string // Routing key prefix for requests (e.g. "rpc").

	channel Channel
	done    chan struct{}
	stopped sync.Once
}

func (s *Server) runHandler(deliveries <-chan amqp.Delivery, handlerName string) {
	logger := s.Logger.With().Str("module", "rpc-handler").Str("handler", handlerName).Logger()

	// fetch handler
	handler := s.Handlers[handlerName]

	// process RPC requests
	for delivery := range deliveries {
		if delivery.ReplyTo == "" {
			logger.Error().Str("correlation_id", delivery.CorrelationId).Msg("Request without reply address, dropping.")
			continue
		}
		if expired(delivery, time.Now()) {
			logger.Warn().Str("correlation_id", delivery.CorrelationId).Msg("Request expired while queued, dropping.")
			continue
		}

		// run handler
		output := handler(delivery.Body)

		// return output to sender
		err := s.channel.Publish(
			s.Exchange,
			delivery.ReplyTo, // use ReplyTo as routing key
			true,             // mandatory
			false,            // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: delivery.CorrelationId,
				Body:          output,
			},
		)
		if err != nil {
			logger.Err(err).Msg("Error publishing response.")
		}
	}
	logger.Debug().Msg("Request queue closed.")
	s.stopped.Do(func() { close(s.done) })
}

// expired reports whether the caller has stopped waiting for delivery.
// Handlers run one request at a time, and with autoAck the broker hands over
// queued requests no matter their expiration, so it is checked here.
// AMQP timestamps carry whole seconds.
func expired(delivery amqp.Delivery, now time.Time) bool {
	if delivery.Expiration == "" || delivery.Timestamp.IsZero() {
		return false
	}
	ms, err := strconv.ParseInt(delivery.Expiration, 10, 64)
	if err != nil {
		return false
	}
	return now.After(delivery.Timestamp.Add(time.Duration(ms) * time.Millisecond))
}

// Done is closed once any handler stops receiving requests, which happens
// when the server is closed or the broker goes away.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Run runs the RPC server. Handlers are served from background goroutines
// until the underlying channel closes, see Done.
func (s *Server) Run() error {
	s.done = make(chan struct{})

	// init channel
	channel, err := s.Dial()
	if err != nil {
		return err
	}
	s.channel = channel

	// set prefetch
	err = channel.Qos(1, 0, false)
	if err != nil {
		return err
	}

	// register the exchange
	err = declareExchange(channel, s.Exchange)
	if err != nil {
		return err
	}

	// spawn handler goroutines
	for handler := range s.Handlers {
		// declare RPC queue
		queue, err := channel.QueueDeclare(
			s.Exchange+"."+s.RoutingKey+"."+handler,
			false, // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		if err != nil {
			return err
		}

		// bind RPC queue
		err = channel.QueueBind(
			queue.Name,
			s.RoutingKey+"."+handler,
			s.Exchange,
			false, // noWait
			nil,
		)
		if err != nil {
			return err
		}

		// create delivery channel
		deliveries, err := channel.Consume(
			queue.Name,
			"",
			true,  // autoAck
			false, // exclusive
			false, // noLocal
			false, // noWait
			nil,
		)
		if err != nil {
			return err
		}

		// spawn handler listener
		go s.runHandler(deliveries, handler)
	}

	return nil
}

// Close closes the server's channel, stopping all handlers.
func (s *Server) Close() error {
	if s.channel == nil {
		return nil
	}
	return s.channel.Close()
}

package rpc

import (
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Connect dials the message broker and returns the connection together with
// a Dialer opening channels on it. The caller owns the connection.
func Connect(MQURI string, logger zerolog.Logger) (*amqp.Connection, Dialer, error) {
	// create the connection
	conn, err := amqp.Dial(MQURI)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().Msg("Connection established")

	// report unexpected closes, consumers on the connection stop with it
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err, ok := <-closed; ok && err != nil {
			logger.Error().Str("reason", err.Reason).Int("code", err.Code).Msg("Connection to message broker lost")
		}
	}()

	return conn, AMQPConnection(conn), nil
}

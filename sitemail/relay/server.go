package relay

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/sitemail"
	"github.com/sparksolution/sitemail/sitemail/delivery"
)

// DefaultTimeout bounds a single delivery attempt made on behalf of the site.
// It stays below sitemail.DefaultRPCTimeout so the site hears about a failed
// delivery instead of timing out while the relay may still send.
const DefaultTimeout = 20 * time.Second

// ErrQueueClosed is returned by Run when the broker stops handing out requests.
var ErrQueueClosed = errors.New("request queue closed")

// Server represents the relay server. It answers delivery calls from the
// site by handing each message to Mailer.
type Server struct {
	Logger  zerolog.Logger
	Dial    rpc.Dialer
	Mailer  delivery.Mailer
	Timeout time.Duration // per-delivery timeout, DefaultTimeout if zero

	rpc *rpc.Server
}

// Run runs the Server until ctx is cancelled.
func (server *Server) Run(ctx context.Context) error {
	logger := server.getLogger("runner")

	handlers := make(map[string]rpc.Handler)
	handlers[sitemail.DeliveryCall] = server.deliveryHandler
	logger.Debug().Msgf("%d handlers registered", len(handlers))

	server.rpc = &rpc.Server{
		Logger:   server.Logger,
		Handlers: handlers,

		Dial:       server.Dial,
		Exchange:   sitemail.Exchange,
		RoutingKey: sitemail.RPCRoutingKey,
	}

	if err := server.rpc.Run(); err != nil {
		return err
	}
	logger.Info().Msg("Relay started")

	// the handler goroutines run in the background until we are told to stop
	// or lose the broker
	select {
	case <-ctx.Done():
		logger.Info().Msg("Relay stopping")
		return server.rpc.Close()
	case <-server.rpc.Done():
		logger.Error().Msg("Request queue closed, relay stopping")
		_ = server.rpc.Close()
		return ErrQueueClosed
	}
}

func (server *Server) getLogger(module string) zerolog.Logger {
	return server.Logger.With().Str("module", module).Logger()
}

func (server *Server) timeout() time.Duration {
	if server.Timeout > 0 {
		return server.Timeout
	}
	return DefaultTimeout
}

package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/sitemail"
)

// Relay hands messages to a relay process over AMQP and waits for its verdict.
type Relay struct {
	Client  *rpc.Client
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewRelay returns a Relay transport calling the relay through dial.
func NewRelay(dial rpc.Dialer, timeout time.Duration, logger zerolog.Logger) *Relay {
	logger = logger.With().Str("module", "relay-transport").Logger()
	return &Relay{
		Client: &rpc.Client{
			Logger:             logger,
			Dial:               dial,
			Exchange:           sitemail.Exchange,
			RequestRoutingKey:  sitemail.RPCRoutingKey,
			ResponseRoutingKey: sitemail.RPCResponseRoutingKey,
		},
		Timeout: timeout,
		Logger:  logger,
	}
}

// Deliver calls the relay's delivery handler and blocks for its answer.
func (r *Relay) Deliver(ctx context.Context, msg sitemail.OutboundMessage) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = sitemail.DefaultRPCTimeout
	}

	resp, err := r.Client.Call(ctx, sitemail.DeliveryCall, msg, timeout)
	if err != nil {
		r.Logger.Err(err).Msg("Error calling relay")
		return sitemail.DeliveryFailed(err)
	}

	var result sitemail.DeliveryResult
	if err := sitemail.Unmarshal(resp, &result); err != nil {
		r.Logger.Err(err).Bytes("data", resp).Msg("Error decoding relay response")
		return sitemail.DeliveryFailed(fmt.Errorf("malformed relay response: %w", err))
	}
	if result.Error != "" {
		return sitemail.DeliveryFailed(errors.New(result.Error))
	}
	return nil
}

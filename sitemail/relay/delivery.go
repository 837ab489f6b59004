package relay

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sparksolution/sitemail/sitemail"
)

func (server *Server) deliveryHandler(data []byte) []byte {
	logger := server.getLogger("handler.delivery")
	logger.Debug().Msg("Received delivery request.")

	var msg sitemail.OutboundMessage
	err := sitemail.Unmarshal(data, &msg)
	if err != nil {
		logger.Err(err).Msg("Error deserializing message.")
		return server.answer(logger, sitemail.DeliveryResult{Error: "malformed delivery request"})
	}

	result := server.processDeliveryRequest(logger, msg)
	logger.Debug().Bool("delivered", result.Error == "").Msg("Answered delivery request.")
	return server.answer(logger, result)
}

func (server *Server) processDeliveryRequest(logger zerolog.Logger, msg sitemail.OutboundMessage) sitemail.DeliveryResult {
	if len(msg.Recipients) == 0 {
		return sitemail.DeliveryResult{Error: "message has no recipients"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), server.timeout())
	defer cancel()

	if err := server.Mailer.Deliver(ctx, msg); err != nil {
		logger.Err(err).Int("recipients", len(msg.Recipients)).Msg("Error delivering message.")
		return sitemail.DeliveryResult{Error: err.Error()}
	}
	return sitemail.DeliveryResult{}
}

func (server *Server) answer(logger zerolog.Logger, result sitemail.DeliveryResult) []byte {
	data, err := sitemail.Marshal(result)
	if err != nil {
		logger.Err(err).Msg("Error serializing result.")
		return []byte(`{"error":"relay error"}`)
	}
	return data
}

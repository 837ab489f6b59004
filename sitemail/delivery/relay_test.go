package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/rpc/rpctest"
	"github.com/sparksolution/sitemail/sitemail"
	"github.com/sparksolution/sitemail/sitemail/delivery"
)

// serve answers delivery calls on broker with handler.
func serve(t *testing.T, broker *rpctest.Broker, handler rpc.Handler) {
	t.Helper()
	server := &rpc.Server{
		Handlers:   map[string]rpc.Handler{sitemail.DeliveryCall: handler},
		Logger:     zerolog.Nop(),
		Dial:       broker.Dialer(),
		Exchange:   sitemail.Exchange,
		RoutingKey: sitemail.RPCRoutingKey,
	}
	require.NoError(t, server.Run())
}

var testMessage = sitemail.OutboundMessage{
	Subject:    sitemail.ContactSubject,
	Sender:     "owner@example.com",
	Recipients: []string{"owner@example.com"},
	Body:       "Name: Alice\nEmail: alice@example.com\nMessage: Hi",
}

func TestRelay_Deliver_Success(t *testing.T) {
	broker := rpctest.NewBroker()
	defer broker.Shutdown()

	var got sitemail.OutboundMessage
	serve(t, broker, func(data []byte) []byte {
		_ = sitemail.Unmarshal(data, &got)
		return []byte(`{}`)
	})

	relay := delivery.NewRelay(broker.Dialer(), time.Second, zerolog.Nop())
	require.NoError(t, relay.Deliver(context.Background(), testMessage))
	assert.Equal(t, testMessage, got)
}

func TestRelay_Deliver_RemoteError(t *testing.T) {
	broker := rpctest.NewBroker()
	defer broker.Shutdown()
	serve(t, broker, func([]byte) []byte { return []byte(`{"error":"SMTP timeout"}`) })

	err := delivery.NewRelay(broker.Dialer(), time.Second, zerolog.Nop()).Deliver(context.Background(), testMessage)

	var mde *sitemail.MailDeliveryError
	require.True(t, errors.As(err, &mde))
	assert.Equal(t, "SMTP timeout", err.Error())
}

func TestRelay_Deliver_MalformedResponse(t *testing.T) {
	broker := rpctest.NewBroker()
	defer broker.Shutdown()
	serve(t, broker, func([]byte) []byte { return []byte(`not json`) })

	err := delivery.NewRelay(broker.Dialer(), time.Second, zerolog.Nop()).Deliver(context.Background(), testMessage)

	var mde *sitemail.MailDeliveryError
	require.True(t, errors.As(err, &mde))
	assert.Contains(t, err.Error(), "malformed relay response")
}

func TestRelay_Deliver_NoRelayListening(t *testing.T) {
	broker := rpctest.NewBroker()
	defer broker.Shutdown()

	err := delivery.NewRelay(broker.Dialer(), 20*time.Millisecond, zerolog.Nop()).Deliver(context.Background(), testMessage)

	var mde *sitemail.MailDeliveryError
	require.True(t, errors.As(err, &mde))
	assert.True(t, errors.Is(err, rpc.ErrTimeout))
	assert.Equal(t, "request timed out", err.Error())
}

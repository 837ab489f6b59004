package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sparksolution/sitemail/cmd/internal/flags"
	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/sitemail/delivery"
	"github.com/sparksolution/sitemail/sitemail/relay"
)

func main() {
	app := kingpin.New("relay", "SMTP relay for contact form notifications")

	AMQPURI := app.Flag("amqp-uri", "The AMQP URI to connect to").Envar("AMQP_URI").Short('u').Required().String()
	timeout := app.Flag("delivery-timeout", "Upper bound for a single delivery").Envar("DELIVERY_TIMEOUT").Default(relay.DefaultTimeout.String()).Duration()

	smtpConfig := flags.SMTP(app)
	newLogger := flags.Logger(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dial, err := rpc.Connect(*AMQPURI, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error initializing relay.")
	}
	defer conn.Close()

	server := &relay.Server{
		Logger:  logger,
		Dial:    dial,
		Mailer:  delivery.NewSMTP(smtpConfig(), logger),
		Timeout: *timeout,
	}
	if err := server.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Error running relay.")
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sparksolution/sitemail/cmd/internal/flags"
	"github.com/sparksolution/sitemail/rpc"
	"github.com/sparksolution/sitemail/sitemail"
	"github.com/sparksolution/sitemail/sitemail/delivery"
	"github.com/sparksolution/sitemail/sitemail/metrics"
	"github.com/sparksolution/sitemail/sitemail/web"
)

func main() {
	app := kingpin.New("site", "Marketing website with a contact form")

	bind := app.Flag("bind", "The address to bind to").Envar("BIND").Default("[::]:8080").Short('b').String()
	owner := app.Flag("owner", "Address that sends and receives contact notifications").Envar("OWNER_ADDRESS").Required().String()
	placeholder := app.Flag("placeholder", "Text written for absent form fields").Envar("PLACEHOLDER").Default(sitemail.DefaultPlaceholder).String()
	templates := app.Flag("templates", "Directory overriding the built-in templates, reloaded on change").Envar("TEMPLATES_DIR").ExistingDir()
	cspSources := flags.CSPSources(app)
	metricsBind := app.Flag("metrics-bind", "Address to serve Prometheus metrics on, disabled if empty").Envar("METRICS_BIND").String()

	transport := app.Flag("transport", "Mail transport: smtp or relay").Envar("TRANSPORT").Default("smtp").Enum("smtp", "relay")
	AMQPURI := app.Flag("amqp-uri", "The AMQP URI to connect to, for the relay transport").Envar("AMQP_URI").Short('u').String()
	relayTimeout := app.Flag("relay-timeout", "How long to wait for the relay's answer").Envar("RELAY_TIMEOUT").Default(sitemail.DefaultRPCTimeout.String()).Duration()

	smtpConfig := flags.SMTP(app)
	newLogger := flags.Logger(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
	logger := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// mail transport
	var mailer delivery.Mailer
	switch *transport {
	case "relay":
		if *AMQPURI == "" {
			logger.Fatal().Msg("--amqp-uri is required for the relay transport.")
		}
		conn, dial, err := rpc.Connect(*AMQPURI, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Error connecting to message broker.")
		}
		defer conn.Close()
		mailer = delivery.NewRelay(dial, *relayTimeout, logger)
	default:
		mailer = delivery.NewSMTP(smtpConfig(), logger)
	}

	// views
	renderer, err := web.LoadTemplates(*templates, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Error loading templates.")
	}
	go func() {
		if err := renderer.Watch(ctx); err != nil {
			logger.Err(err).Msg("Error watching templates.")
		}
	}()

	// metrics
	var m *metrics.Metrics
	if *metricsBind != "" {
		m = metrics.New()
		go func() {
			logger.Info().Str("bind", *metricsBind).Msg("Serving metrics")
			if err := http.ListenAndServe(*metricsBind, m.Handler()); !errors.Is(err, http.ErrServerClosed) {
				logger.Err(err).Msg("Error serving metrics.")
			}
		}()
	}

	site := &web.API{
		Logger:      logger,
		Mailer:      mailer,
		Renderer:    renderer,
		Metrics:     m,
		Owner:       *owner,
		Placeholder: *placeholder,
		CSPSources:  *cspSources,
	}

	if err := site.Run(ctx, *bind); err != nil {
		logger.Fatal().Err(err).Msg("Error running website.")
	}
}

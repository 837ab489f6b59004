// Package flags registers the command line flags shared by the binaries.
package flags

import (
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sparksolution/sitemail/sitemail/delivery"
)

// Logger registers --verbose and --pretty. The returned func builds the
// logger and must be called after parsing.
func Logger(app *kingpin.Application) func() zerolog.Logger {
	verbose := app.Flag("verbose", "Enables debug logging").Short('v').Bool()
	pretty := app.Flag("pretty", "Enables pretty logging").Short('p').Bool()

	return func() zerolog.Logger {
		logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

		if *pretty {
			logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}

		if *verbose {
			logger = logger.Level(zerolog.DebugLevel)
		} else {
			logger = logger.Level(zerolog.InfoLevel)
		}
		return logger
	}
}

// CSPSources registers the repeatable --csp-source flag. CSP_SOURCES takes
// one source per line.
func CSPSources(app *kingpin.Application) *[]string {
	return app.Flag("csp-source", "Extra Content-Security-Policy default-src entry (repeatable)").Envar("CSP_SOURCES").Strings()
}

// SMTP registers the SMTP transport flags. The returned func assembles the
// config and must be called after parsing.
func SMTP(app *kingpin.Application) func() delivery.SMTPConfig {
	host := app.Flag("smtp-host", "SMTP submission server").Envar("SMTP_HOST").Default("smtp.gmail.com").String()
	port := app.Flag("smtp-port", "SMTP submission port").Envar("SMTP_PORT").Default("587").Int()
	tls := app.Flag("smtp-tls", "SMTP encryption: starttls, tls or none").Envar("SMTP_TLS").Default(string(delivery.TLSStartTLS)).Enum(delivery.TLSModes...)
	username := app.Flag("smtp-username", "SMTP AUTH username, empty disables authentication").Envar("SMTP_USERNAME").String()
	password := app.Flag("smtp-password", "SMTP AUTH password").Envar("SMTP_PASSWORD").String()
	timeout := app.Flag("smtp-timeout", "SMTP connection timeout").Envar("SMTP_TIMEOUT").Default("15s").Duration()

	return func() delivery.SMTPConfig {
		return delivery.SMTPConfig{
			Host:     *host,
			Port:     *port,
			TLS:      delivery.TLSMode(*tls),
			Username: *username,
			Password: *password,
			Timeout:  *timeout,
		}
	}
}

package flags

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sparksolution/sitemail/sitemail/delivery"
)

func TestSMTP_Defaults(t *testing.T) {
	app := kingpin.New("test", "")
	config := SMTP(app)

	_, err := app.Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, delivery.SMTPConfig{
		Host:    "smtp.gmail.com",
		Port:    587,
		TLS:     delivery.TLSStartTLS,
		Timeout: 15 * time.Second,
	}, config())
}

func TestSMTP_Flags(t *testing.T) {
	app := kingpin.New("test", "")
	config := SMTP(app)

	_, err := app.Parse([]string{
		"--smtp-host", "mail.example.com",
		"--smtp-port", "465",
		"--smtp-tls", "tls",
		"--smtp-username", "owner",
		"--smtp-password", "secret",
		"--smtp-timeout", "3s",
	})
	require.NoError(t, err)

	assert.Equal(t, delivery.SMTPConfig{
		Host:     "mail.example.com",
		Port:     465,
		TLS:      delivery.TLSImplicit,
		Username: "owner",
		Password: "secret",
		Timeout:  3 * time.Second,
	}, config())
}

func TestSMTP_RejectsUnknownTLSMode(t *testing.T) {
	app := kingpin.New("test", "")
	SMTP(app)

	_, err := app.Parse([]string{"--smtp-tls", "ssl3"})
	assert.Error(t, err)
}

func TestLogger_Level(t *testing.T) {
	app := kingpin.New("test", "")
	logger := Logger(app)

	_, err := app.Parse([]string{"-v"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, logger().GetLevel())
}

func TestCSPSources(t *testing.T) {
	app := kingpin.New("test", "")
	sources := CSPSources(app)

	_, err := app.Parse([]string{"--csp-source", "cdn.example.com", "--csp-source", "fonts.example.com"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cdn.example.com", "fonts.example.com"}, *sources)
}

func TestCSPSources_Envar(t *testing.T) {
	t.Setenv("CSP_SOURCES", "cdn.example.com\nfonts.example.com")
	app := kingpin.New("test", "")
	sources := CSPSources(app)

	_, err := app.Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"cdn.example.com", "fonts.example.com"}, *sources)
}

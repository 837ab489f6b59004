package web

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sparksolution/sitemail/sitemail"
	"github.com/sparksolution/sitemail/sitemail/delivery"
	"github.com/sparksolution/sitemail/sitemail/metrics"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests once
// it is told to stop.
const ShutdownTimeout = 10 * time.Second

// API describes the website.
type API struct {
	Logger   zerolog.Logger
	Mailer   delivery.Mailer
	Renderer Renderer
	Metrics  *metrics.Metrics // optional

	Owner       string   // receives, and is the sender of, contact notifications
	Placeholder string   // written for absent form fields, sitemail.DefaultPlaceholder if empty
	CSPSources  []string // extra default-src entries besides 'self'
}

// Handler builds the router.
func (api *API) Handler() *gin.Engine {
	r := gin.New()

	r.Use(
		gin.RecoveryWithWriter(api.getLogger("recovery")),
		api.requestLogger(),
		api.securityHeaders(),
	)

	r.GET("/", api.pageHandler(HomePage))
	r.GET("/about", api.pageHandler(AboutPage))
	r.GET("/projects", api.pageHandler(ProjectsPage))
	r.GET("/contact", api.pageHandler(ContactPage))
	r.POST("/send_contact", api.sendContactHandler)

	static, err := fs.Sub(content, "static")
	if err != nil {
		// the directory is embedded, this only fails on a broken build
		panic(err)
	}
	r.StaticFS("/static", http.FS(static))

	return r
}

// Run serves the website at a given bind address until ctx is cancelled.
func (api *API) Run(ctx context.Context, bind string) error {
	gin.SetMode(gin.ReleaseMode)

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	return api.Serve(ctx, ln)
}

// Serve serves the website on ln until ctx is cancelled. It returns once
// in-flight requests are finished or the shutdown grace period is over.
func (api *API) Serve(ctx context.Context, ln net.Listener) error {
	logger := api.getLogger("runner")

	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("bind", ln.Addr().String()).Msg("Serving website")
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as Shutdown starts, wait for the drain
	if err := <-shutdown; err != nil {
		logger.Err(err).Msg("Error shutting down")
		return err
	}
	logger.Info().Msg("Website stopped")
	return nil
}

func (api *API) getLogger(module string) zerolog.Logger {
	return api.Logger.With().Str("module", module).Logger()
}

func (api *API) placeholder() string {
	if api.Placeholder == "" {
		return sitemail.DefaultPlaceholder
	}
	return api.Placeholder
}

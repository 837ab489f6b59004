package web

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparksolution/sitemail/sitemail"
)

func (api *API) pageHandler(name string) gin.HandlerFunc {
	page := strings.TrimSuffix(name, ".html")
	return func(c *gin.Context) {
		if api.render(c, name) {
			api.Metrics.PageView(page)
		}
	}
}

// render writes the named page, or aborts with 500 if it fails to render.
// Rendering goes through a buffer so a broken template never leaks a partial page.
func (api *API) render(c *gin.Context, name string) bool {
	var buf bytes.Buffer
	if err := api.Renderer.Render(&buf, name, nil); err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return false
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return true
}

func (api *API) sendContactHandler(c *gin.Context) {
	logger := api.getLogger("handler.contact")

	// absent fields stay nil, nothing is validated
	submission := sitemail.ContactSubmission{
		Name:    postForm(c, "name"),
		Email:   postForm(c, "email"),
		Message: postForm(c, "message"),
	}
	msg := sitemail.NewOutboundMessage(submission, api.Owner, api.placeholder())

	// a visitor leaving the page does not call the message back, the
	// transport's own timeout is the only limit
	ctx := context.WithoutCancel(c.Request.Context())

	start := time.Now()
	err := api.Mailer.Deliver(ctx, msg)
	api.Metrics.Submission(err, time.Since(start))
	if err != nil {
		logger.Err(err).Msg("Error delivering contact form")
		c.String(http.StatusOK, "Error sending message: %s", err.Error())
		return
	}

	logger.Debug().Msg("Contact form delivered")
	api.render(c, SuccessPage)
}

func postForm(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

//go:embed all:templates static
var content embed.FS

// Page template names.
const (
	HomePage     = "home.html"
	AboutPage    = "about.html"
	ProjectsPage = "projects.html"
	ContactPage  = "contact.html"
	SuccessPage  = "success.html"
)

// Pages lists every template a template set must provide.
var Pages = []string{HomePage, AboutPage, ProjectsPage, ContactPage, SuccessPage}

const partials = "_partials/*.html"

// Renderer turns a named template into an HTML document.
type Renderer interface {
	Render(w io.Writer, name string, data interface{}) error
}

// Templates is a Renderer backed by html/template. Each page is parsed
// together with the shared partials.
type Templates struct {
	Logger zerolog.Logger

	dir string // on-disk override, empty for the embedded set
	mu  sync.RWMutex
	set map[string]*template.Template
}

// LoadTemplates parses the template set from dir, or the embedded set if dir
// is empty.
func LoadTemplates(dir string, logger zerolog.Logger) (*Templates, error) {
	t := &Templates{
		Logger: logger.With().Str("module", "templates").Logger(),
		dir:    dir,
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses every page. The previous set stays in use on error.
func (t *Templates) Reload() error {
	t1 := time.Now()
	fsys, err := t.fs()
	if err != nil {
		return err
	}

	set := make(map[string]*template.Template, len(Pages))
	for _, name := range Pages {
		tmpl, err := template.New(name).ParseFS(fsys, name, partials)
		if err != nil {
			return fmt.Errorf("couldn't parse template %q: %w", name, err)
		}
		set[name] = tmpl
	}

	t.mu.Lock()
	t.set = set
	t.mu.Unlock()
	t.Logger.Debug().Int("templates", len(set)).Dur("took", time.Since(t1)).Msg("Parsed templates")
	return nil
}

func (t *Templates) fs() (fs.FS, error) {
	if t.dir != "" {
		return os.DirFS(t.dir), nil
	}
	return fs.Sub(content, "templates")
}

// Render executes the named page into w.
func (t *Templates) Render(w io.Writer, name string, data interface{}) error {
	t.mu.RLock()
	tmpl, ok := t.set[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no such template: %q", name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// Watch reloads the set whenever a file in the override directory changes,
// until ctx is cancelled. It returns immediately for the embedded set.
func (t *Templates) Watch(ctx context.Context) error {
	if t.dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range []string{t.dir, filepath.Join(t.dir, filepath.Dir(partials))} {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	t.Logger.Info().Str("dir", t.dir).Msg("Watching templates")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := t.Reload(); err != nil {
				t.Logger.Err(err).Str("file", event.Name).Msg("Error reloading templates, keeping previous set")
				continue
			}
			t.Logger.Info().Str("file", event.Name).Msg("Reloaded templates")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.Logger.Err(err).Msg("Template watcher error")
		}
	}
}

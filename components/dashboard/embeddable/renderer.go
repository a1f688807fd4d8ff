package embeddable

import (
	"embed"
	"io"
	"sync"

	template "github.com/goliatone/go-template"
)

// Renderer is the template renderer contract used by containers and panels.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

//go:embed templates/*.html templates/**/*.html
var embeddedTemplates embed.FS

// Template names.
const (
	ContainerTemplate = "container.html"
	PanelTemplate     = "panels/panel.html"
	ErrorTemplate     = "panels/error.html"
)

// NewTemplateRenderer creates a go-template renderer backed by the embedded templates.
func NewTemplateRenderer() (Renderer, error) {
	return template.NewRenderer(
		template.WithFS(embeddedTemplates),
		template.WithBaseDir("templates"),
		template.WithExtension(".html"),
	)
}

var defaultRenderer = sync.OnceValues(NewTemplateRenderer)

package handlers

import (
	"embed"
	"html"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	htmlengine "github.com/gofiber/template/html/v2"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViewEngine builds the template engine for the dashboard pages.
func NewViewEngine() *htmlengine.Engine {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}

	engine := htmlengine.NewFileSystem(http.FS(views), ".html")
	engine.AddFunc("nl2br", Nl2br)
	engine.AddFunc("chatDisplay", ChatDisplay)
	return engine
}

// Nl2br escapes a message body and turns newlines into <br> tags.
func Nl2br(value string) template.HTML {
	escaped := html.EscapeString(value)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

// ChatDisplay strips the gateway domain suffix from a chat id for display.
func ChatDisplay(value string) string {
	if strings.HasSuffix(value, "@c.us") || strings.HasSuffix(value, "@s.whatsapp.net") {
		return strings.SplitN(value, "@", 2)[0]
	}
	return value
}

// Package views builds the HTML pages. Pages are gomponents node trees
// exposed as templ components, so handlers render every page the same way.
package views

import (
	"context"
	"io"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// AppTitle is shown in the page header and browser tab.
const AppTitle = "Data Sweeper"

// Component adapts a node tree to templ.Component.
func Component(n g.Node) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return n.Render(w)
	})
}

// Anchor is the fragment ID of a file's panel.
func Anchor(fileName string) string {
	var b strings.Builder
	b.WriteString("file-")
	for _, r := range strings.ToLower(fileName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func layout(title string, body ...g.Node) g.Node {
	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(title)),
				h.Link(h.Rel("stylesheet"), h.Href("/static/app.css")),
				h.Script(h.Src("/static/app.js"), g.Attr("defer")),
			),
			h.Body(
				h.Main(
					h.Class("layout"),
					h.Header(
						h.Class("topbar"),
						h.H1(g.Text(AppTitle)),
						h.P(h.Class("muted"), g.Text("Transform your files between CSV and Excel formats with built-in data cleaning and visualization.")),
					),
					g.Group(body),
				),
			),
		),
	)
}

func alert(kind, msg string) g.Node {
	return h.Div(h.Class("alert alert-"+kind), h.Role("alert"), g.Text(msg))
}

func userMessage(msg core.UserMessage) g.Node {
	return h.Div(
		h.Class("alert alert-error"),
		h.Role("alert"),
		h.Strong(g.Text(msg.Message)),
		g.If(msg.Action != "", h.Span(g.Text(" "+msg.Action))),
		h.Small(h.Class("code"), g.Text(" ("+msg.Code+")")),
	)
}

// hiddenFile is the form field naming the file a form acts on.
func hiddenFile(name string) g.Node {
	return h.Input(h.Type("hidden"), h.Name("file"), h.Value(name))
}

func postForm(action string, children ...g.Node) g.Node {
	return h.Form(h.Method("post"), h.Action(action), g.Group(children))
}

// ErrorPage renders a full page for an error outside any file panel.
func ErrorPage(msg core.UserMessage) templ.Component {
	return Component(layout(AppTitle+" | Error",
		userMessage(msg),
		h.P(h.A(h.Href("/"), g.Text("Back to your files"))),
	))
}

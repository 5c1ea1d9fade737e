package views

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// PageData is everything the main page shows.
type PageData struct {
	Flash    []string
	Error    *core.UserMessage // page-level error, e.g. a failed export
	Files    []*core.FileView
	MaxFiles int
}

// Page renders the upload form followed by one panel per file.
func Page(d PageData) templ.Component {
	return Component(layout(AppTitle,
		g.Map(d.Flash, func(msg string) g.Node { return alert("error", msg) }),
		g.Iff(d.Error != nil, func() g.Node { return userMessage(*d.Error) }),
		uploadForm(d.MaxFiles),
		g.If(len(d.Files) == 0, h.P(h.Class("muted empty"), g.Text("Upload CSV or Excel files to get started."))),
		g.Map(d.Files, filePanel),
	))
}

func uploadForm(maxFiles int) g.Node {
	hint := "CSV and Excel (.xlsx) files"
	if maxFiles > 0 {
		hint = fmt.Sprintf("%s, up to %d at a time", hint, maxFiles)
	}
	return h.Section(
		h.Class("card upload"),
		h.Form(
			h.Method("post"),
			h.Action("/upload"),
			h.EncType("multipart/form-data"),
			h.Label(h.For("files"), g.Text("Upload your files")),
			h.Input(h.Type("file"), h.ID("files"), h.Name("files"), h.Multiple(), h.Accept(".csv,.xlsx")),
			h.Small(h.Class("muted"), g.Text(hint)),
			h.Button(h.Type("submit"), g.Text("Upload")),
		),
	)
}

func filePanel(f *core.FileView) g.Node {
	return h.Section(
		h.Class("card file"),
		h.ID(Anchor(f.Name)),
		h.Div(
			h.Class("file-header"),
			h.H2(g.Text(f.Name)),
			h.Span(h.Class("muted"), g.Text(fileSummary(f))),
			postForm("/file/remove", hiddenFile(f.Name),
				h.Button(h.Type("submit"), h.Class("secondary"), g.Text("Remove")),
			),
		),
		g.Map(f.Notices, func(n string) g.Node { return alert("success", n) }),
		g.Iff(f.Error != nil, func() g.Node { return userMessage(*f.Error) }),
		g.Iff(f.Error == nil, func() g.Node {
			return g.Group{
				h.H3(g.Text("Preview the Head of the Dataframe")),
				previewTable(f.Preview),
				cleanSection(f),
				columnsSection(f),
				chartSection(f),
				convertSection(f),
			}
		}),
	)
}

func fileSummary(f *core.FileView) string {
	s := humanize.Bytes(uint64(f.Size))
	if f.Error == nil {
		s += fmt.Sprintf(" · %s rows · %d columns", humanize.Comma(int64(f.Rows)), f.Columns)
	}
	return s
}

func previewTable(t *core.Table) g.Node {
	if t == nil {
		return g.Group(nil)
	}
	header := []g.Node{h.Th(g.Text(""))}
	for _, name := range t.ColumnNames() {
		header = append(header, h.Th(g.Text(name)))
	}

	rows := make([]g.Node, 0, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		cells := []g.Node{h.Th(h.Class("index"), g.Text(strconv.Itoa(t.Index[r])))}
		for _, c := range t.Row(r) {
			if c.IsMissing() {
				cells = append(cells, h.Td(h.Class("missing"), g.Text("NaN")))
				continue
			}
			cls := "text"
			if c.Kind == core.CellNumber {
				cls = "num"
			}
			cells = append(cells, h.Td(h.Class(cls), g.Text(c.String())))
		}
		rows = append(rows, h.Tr(g.Group(cells)))
	}

	return h.Div(
		h.Class("table-wrap"),
		h.Table(
			h.THead(h.Tr(g.Group(header))),
			h.TBody(g.Group(rows)),
		),
	)
}

func checkbox(name, label string, on bool) g.Node {
	return h.Label(
		h.Class("check"),
		h.Input(h.Type("checkbox"), h.Name(name), h.Value("on"), g.If(on, h.Checked()), g.Attr("data-autosubmit")),
		g.Text(" "+label),
	)
}

func cleanSection(f *core.FileView) g.Node {
	return h.Div(
		h.Class("section"),
		h.H3(g.Text("Data Cleaning Options")),
		postForm("/file/clean", hiddenFile(f.Name),
			checkbox("clean", "Clean Data for "+f.Name, f.Clean),
			h.Button(h.Type("submit"), h.Class("secondary js-hide"), g.Text("Update")),
		),
		g.If(f.Clean, h.Div(
			h.Class("actions"),
			postForm("/file/dedup", hiddenFile(f.Name),
				h.Button(h.Type("submit"), g.Text("Remove Duplicates from "+f.Name)),
			),
			postForm("/file/fill", hiddenFile(f.Name),
				h.Button(h.Type("submit"), g.Text("Fill Missing Values for "+f.Name)),
			),
		)),
		g.If(len(f.Ops) > 0, h.P(h.Class("muted"), g.Textf("%d cleaning step(s) applied.", len(f.Ops)))),
	)
}

func columnsSection(f *core.FileView) g.Node {
	selected := make(map[string]bool, len(f.Selected))
	for _, name := range f.Selected {
		selected[name] = true
	}

	return h.Div(
		h.Class("section"),
		h.H3(g.Text("Select Columns to Convert")),
		postForm("/file/columns", hiddenFile(f.Name),
			h.Input(h.Type("hidden"), h.Name("columns_present"), h.Value("1")),
			h.Select(
				h.Name("columns"),
				h.Multiple(),
				g.Attr("size", strconv.Itoa(min(max(len(f.ColumnNames), 2), 8))),
				g.Map(f.ColumnNames, func(name string) g.Node {
					return h.Option(h.Value(name), g.If(selected[name], h.Selected()), g.Text(name))
				}),
			),
			h.Div(
				h.Class("actions"),
				h.Button(h.Type("submit"), g.Text("Apply")),
				h.Button(h.Type("submit"), h.Name("reset"), h.Value("1"), h.Class("secondary"), g.Text("All columns")),
			),
		),
	)
}

func chartSection(f *core.FileView) g.Node {
	return h.Div(
		h.Class("section"),
		h.H3(g.Text("Data Visualization")),
		postForm("/file/chart", hiddenFile(f.Name),
			checkbox("show_chart", "Show Visualization for "+f.Name, f.ShowChart),
			h.Button(h.Type("submit"), h.Class("secondary js-hide"), g.Text("Update")),
		),
		g.Iff(f.Chart != nil, func() g.Node {
			if f.Chart.Warning != "" {
				return alert("warning", f.Chart.Warning)
			}
			return BarChart(f.Chart.Chart)
		}),
	)
}

func convertSection(f *core.FileView) g.Node {
	radios := make([]g.Node, 0, len(core.Formats))
	for _, format := range core.Formats {
		radios = append(radios, h.Label(
			h.Class("check"),
			h.Input(h.Type("radio"), h.Name("format"), h.Value(format.String()), g.If(format == f.ExportFormat, h.Checked())),
			g.Text(" "+format.Label()),
		))
	}

	return h.Div(
		h.Class("section"),
		h.H3(g.Text("Conversion Options")),
		postForm("/file/convert", hiddenFile(f.Name),
			h.P(g.Text("Convert "+f.Name+" to:")),
			g.Group(radios),
			h.Div(
				h.Class("actions"),
				h.Button(h.Type("submit"), g.Text("Convert "+f.Name)),
				h.Button(h.Type("submit"), h.Class("secondary"), g.Attr("formaction", "/file/format"), g.Text("Remember choice")),
			),
		),
	)
}

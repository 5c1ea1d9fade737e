package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// previewResponse is a file's head in JSON form. Missing cells are null.
type previewResponse struct {
	Index   []int    `json:"index"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type fileResponse struct {
	*core.FileView
	Preview *previewResponse `json:"preview,omitempty"`
}

type filesResponse struct {
	SessionID string         `json:"sessionId"`
	Files     []fileResponse `json:"files"`
}

func newPreviewResponse(t *core.Table) *previewResponse {
	if t == nil {
		return nil
	}
	p := &previewResponse{
		Index:   append([]int{}, t.Index...),
		Columns: t.ColumnNames(),
		Rows:    make([][]any, t.NumRows()),
	}
	for r := range p.Rows {
		cells := t.Row(r)
		row := make([]any, len(cells))
		for c, cell := range cells {
			switch cell.Kind {
			case core.CellNumber:
				row[c] = cell.Num
			case core.CellText:
				row[c] = cell.Text
			}
		}
		p.Rows[r] = row
	}
	return p
}

// handleAPIListFiles returns every file of the session after a fresh pass.
func (s *Server) handleAPIListFiles(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	views, err := s.service.Files(r.Context(), sid)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := filesResponse{SessionID: sid, Files: make([]fileResponse, 0, len(views))}
	for _, v := range views {
		resp.Files = append(resp.Files, fileResponse{FileView: v, Preview: newPreviewResponse(v.Preview)})
	}
	render.JSON(w, r, resp)
}

type chartRequest struct {
	File string `validate:"required,max=255"`
}

// handleAPIChart returns the chart for ?file=, or the warning explaining why
// there is none.
func (s *Server) handleAPIChart(w http.ResponseWriter, r *http.Request) {
	req := chartRequest{File: r.URL.Query().Get("file")}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	vis, err := s.service.Chart(r.Context(), sessionID(r), req.File)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	render.JSON(w, r, vis)
}

// ConvertRequest is the body of POST /api/files/convert.
type ConvertRequest struct {
	File   string `json:"file" validate:"required,max=255"`
	Format string `json:"format" validate:"required,oneof=csv xlsx excel"`
}

// Bind implements render.Binder.
func (c *ConvertRequest) Bind(r *http.Request) error { return nil }

func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := render.Bind(r, &req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	format, err := core.ParseFormat(req.Format)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}

	exp, err := s.service.Convert(r.Context(), sessionID(r), req.File, format)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeDownload(w, r, exp)
}

func (s *Server) handleAPILimiter(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.service.LimiterStatus())
}

package web

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/web/views"
)

// renderComponent writes c as an HTML response with the given status.
func (s *Server) renderComponent(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "error", err)
	}
}

// renderPage renders the session page. pageErr, when set, is shown above the
// upload form.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, pageErr error) {
	page, err := s.service.View(r.Context(), sessionID(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	data := views.PageData{
		Flash:    page.Flash,
		Files:    page.Files,
		MaxFiles: s.cfg.Upload.MaxFiles,
	}
	if pageErr != nil {
		msg := userMessage(pageErr)
		data.Error = &msg
	}
	s.renderComponent(w, r, status, views.Page(data))
}

// writeDownload sends an export as an attachment.
func writeDownload(w http.ResponseWriter, r *http.Request, exp *core.Export) {
	w.Header().Set("Content-Type", exp.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.FileName}))
	w.Header().Set("Content-Length", strconv.FormatInt(exp.Size(), 10))
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, exp.FileName, time.Time{}, exp.Body)
}

// redirectToFile sends the browser back to a file's panel.
func redirectToFile(w http.ResponseWriter, r *http.Request, fileName string) {
	target := "/"
	if fileName != "" {
		target += "#" + views.Anchor(fileName)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

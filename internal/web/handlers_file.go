package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// fileAction handles a form post acting on the file named by the "file"
// field, then redirects back to that file's panel.
func (s *Server) fileAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sid, file string) error) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	file := r.PostFormValue("file")
	if file == "" {
		s.respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	if err := fn(r.Context(), sessionID(r), file); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	redirectToFile(w, r, file)
}

func checked(r *http.Request, name string) bool {
	return r.PostFormValue(name) == "on"
}

func (s *Server) handleSetClean(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		_, err := s.service.SetClean(ctx, sid, file, checked(r, "clean"))
		return err
	})
}

func (s *Server) handleDeduplicate(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		_, err := s.service.ApplyDeduplicate(ctx, sid, file)
		return err
	})
}

func (s *Server) handleFillMissing(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		_, err := s.service.ApplyFillMissing(ctx, sid, file)
		return err
	})
}

// handleSelectColumns sets the selection from the repeated "columns" field.
// "reset" restores all columns; an empty submission selects none.
func (s *Server) handleSelectColumns(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		var sel core.ColumnSelection
		if r.PostFormValue("reset") == "" {
			sel = core.ColumnSelection(append([]string{}, r.PostForm["columns"]...))
		}
		_, err := s.service.SelectColumns(ctx, sid, file, sel)
		return err
	})
}

func (s *Server) handleSetShowChart(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		_, err := s.service.SetShowChart(ctx, sid, file, checked(r, "show_chart"))
		return err
	})
}

func (s *Server) handleSetFormat(w http.ResponseWriter, r *http.Request) {
	s.fileAction(w, r, func(ctx context.Context, sid, file string) error {
		format, err := core.ParseFormat(r.PostFormValue("format"))
		if err != nil {
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
		_, err = s.service.SetFormat(ctx, sid, file, format)
		return err
	})
}

func (s *Server) handleRemoveFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	if err := s.service.RemoveFile(r.Context(), sessionID(r), r.PostFormValue("file")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleConvert streams the export as a download. On failure the page is
// rendered again with the message and no file is offered.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderPage(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	file := r.PostFormValue("file")
	format, err := core.ParseFormat(r.PostFormValue("format"))
	if err != nil {
		s.renderPage(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	exp, err := s.service.Convert(r.Context(), sessionID(r), file, format)
	if err != nil {
		s.renderPage(w, r, statusFor(err), err)
		return
	}
	writeDownload(w, r, exp)
}

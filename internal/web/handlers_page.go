package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to temporary files.
const multipartMemory = 32 << 20

var errTooManyFiles = errors.New("too many files in one upload")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, nil)
}

// handleUpload stores every file in the "files" field. Per-file failures
// become flash messages on the next page view.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxRequestSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			err = core.ErrNoFile
		}
		s.renderPage(w, r, statusFor(err), err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.renderPage(w, r, http.StatusBadRequest, core.ErrNoFile)
		return
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		s.renderPage(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: %d files, limit %d", errTooManyFiles, len(headers), s.cfg.Upload.MaxFiles))
		return
	}

	files := make([]core.UploadedFile, 0, len(headers))
	now := time.Now().UTC()
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			s.renderPage(w, r, statusFor(err), err)
			return
		}
		files = append(files, core.UploadedFile{
			Name:       filepath.Base(fh.Filename),
			Data:       data,
			UploadedAt: now,
		})
	}

	outcomes, err := s.service.Upload(r.Context(), sessionID(r), files)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	stored := 0
	for _, o := range outcomes {
		if o.Stored {
			stored++
		}
	}
	logging.FromContext(r.Context()).Info("upload handled", "files", len(outcomes), "stored", stored)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/audit"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// UploadOutcome reports what happened to one uploaded file.
type UploadOutcome struct {
	FileName string       `json:"fileName"`
	Stored   bool         `json:"stored"`
	Replaced bool         `json:"replaced,omitempty"`
	Rows     int          `json:"rows,omitempty"`
	Columns  int          `json:"columns,omitempty"`
	Error    *UserMessage `json:"error,omitempty"`
	Err      error        `json:"-"`
}

// Upload validates and stores files in a session. Each file is decoded once;
// files that fail are reported in their outcome, added to the session's flash
// messages and not stored. The remaining files are stored regardless.
// A file with the name of a stored file replaces its data and keeps its
// settings.
func (s *Service) Upload(ctx context.Context, sessionID string, files []UploadedFile) ([]UploadOutcome, error) {
	if len(files) == 0 {
		return nil, ErrNoFile
	}

	outcomes := make([]UploadOutcome, 0, len(files))
	events := make([]audit.Event, 0, len(files))
	err := s.withSession(sessionID, func(sess *Session) error {
		for _, f := range files {
			if f.UploadedAt.IsZero() {
				f.UploadedAt = time.Now().UTC()
			}
			out, e := s.uploadOne(ctx, sess, f)
			if out.Err != nil {
				sess.flash = append(sess.flash, FileErrorText(f.Name, out.Err))
			}
			outcomes = append(outcomes, out)
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Events are recorded after the session lock is released.
	for _, e := range events {
		s.record(ctx, e)
	}
	return outcomes, nil
}

// uploadOne stores f in sess and returns its outcome and the audit event to
// record once the session is released.
func (s *Service) uploadOne(ctx context.Context, sess *Session, f UploadedFile) (UploadOutcome, audit.Event) {
	logger := logging.WithFields(ctx, "session", sess.ID, "file", f.Name)
	out := UploadOutcome{FileName: f.Name}

	format, t, err := s.validate(ctx, f)
	if err != nil {
		msg := MapError(err)
		out.Error = &msg
		out.Err = err
		logger.Warn("upload rejected", "code", msg.Code, "error", err)
		s.observer.FileRejected(msg.Code)

		e := audit.NewEvent(ctx, audit.ActionUploadReject, sess.ID, f.Name)
		e.Bytes = f.Size()
		e.Error = err.Error()
		e.Detail = msg.Code
		return out, e
	}

	if existing, ok := sess.files[f.Name]; ok {
		existing.File = f
		existing.Notices = nil
		out.Replaced = true
	} else {
		sess.put(newFileSession(f))
	}
	out.Stored = true
	out.Rows = t.NumRows()
	out.Columns = t.NumCols()

	logger.Info("file uploaded",
		"format", format.String(),
		"bytes", f.Size(),
		"rows", out.Rows,
		"columns", out.Columns,
		"replaced", out.Replaced,
	)
	s.observer.FileUploaded(format, f.Size())

	e := audit.NewEvent(ctx, audit.ActionUpload, sess.ID, f.Name)
	e.Format = format.String()
	e.Rows = out.Rows
	e.Columns = out.Columns
	e.Bytes = f.Size()
	return out, e
}

// validate decodes f under the pass limiter.
func (s *Service) validate(ctx context.Context, f UploadedFile) (Format, *Table, error) {
	format, err := FormatFromName(f.Name)
	if err != nil {
		return 0, nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return 0, nil, err
	}
	defer s.limiter.Release()

	t, err := Decode(f)
	if err != nil {
		return 0, nil, err
	}
	return format, t, nil
}

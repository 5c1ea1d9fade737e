package core

import (
	"context"
	"errors"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/audit"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// mutate applies fn to one file's state and then reprocesses that file.
// The returned view keeps pending notices for the next page render.
func (s *Service) mutate(ctx context.Context, sessionID, fileName string, fn func(*FileSession) error) (*FileView, error) {
	var v *FileView
	err := s.withSession(sessionID, func(sess *Session) error {
		fs, err := sess.file(fileName)
		if err != nil {
			return err
		}
		if err := fn(fs); err != nil {
			return err
		}
		v = s.buildView(ctx, fs, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// SetClean toggles visibility of the cleaning controls. Applied operations
// are kept either way.
func (s *Service) SetClean(ctx context.Context, sessionID, fileName string, on bool) (*FileView, error) {
	return s.mutate(ctx, sessionID, fileName, func(fs *FileSession) error {
		fs.Clean = on
		return nil
	})
}

// ApplyDeduplicate records a deduplication for the file.
func (s *Service) ApplyDeduplicate(ctx context.Context, sessionID, fileName string) (*FileView, error) {
	return s.applyClean(ctx, sessionID, fileName, OpDeduplicate)
}

// ApplyFillMissing records a numeric mean fill for the file.
func (s *Service) ApplyFillMissing(ctx context.Context, sessionID, fileName string) (*FileView, error) {
	return s.applyClean(ctx, sessionID, fileName, OpFillMissing)
}

// ApplyClean records op for the file. Operations are replayed in order on
// every pass.
func (s *Service) ApplyClean(ctx context.Context, sessionID, fileName string, op CleanOp) (*FileView, error) {
	if _, err := ParseCleanOp(string(op)); err != nil {
		return nil, err
	}
	return s.applyClean(ctx, sessionID, fileName, op)
}

func (s *Service) applyClean(ctx context.Context, sessionID, fileName string, op CleanOp) (*FileView, error) {
	v, err := s.mutate(ctx, sessionID, fileName, func(fs *FileSession) error {
		fs.Ops = append(fs.Ops, op)
		fs.notice(op.Notice())
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.WithFields(ctx, "session", sessionID, "file", fileName).
		Info("cleaning applied", "op", string(op), "rows", v.Rows)
	s.observer.CleanApplied(op)

	e := audit.NewEvent(ctx, audit.ActionClean, sessionID, fileName)
	e.Detail = string(op)
	e.Rows = v.Rows
	e.Columns = v.Columns
	s.record(ctx, e)
	return v, nil
}

// SelectColumns sets the column selection. Every name must exist in the
// cleaned table; otherwise *InvalidColumnError is returned and the previous
// selection stays. A nil selection restores all columns.
func (s *Service) SelectColumns(ctx context.Context, sessionID, fileName string, sel ColumnSelection) (*FileView, error) {
	return s.mutate(ctx, sessionID, fileName, func(fs *FileSession) error {
		if sel == nil {
			fs.Selection = nil
			return nil
		}
		res, err := s.runPass(ctx, fs)
		if err != nil {
			return err
		}
		if err := ValidateSelection(res.cleaned, sel); err != nil {
			return err
		}
		fs.Selection = append(ColumnSelection{}, sel...)
		return nil
	})
}

// SetShowChart toggles the visualization for the file.
func (s *Service) SetShowChart(ctx context.Context, sessionID, fileName string, on bool) (*FileView, error) {
	return s.mutate(ctx, sessionID, fileName, func(fs *FileSession) error {
		fs.ShowChart = on
		return nil
	})
}

// SetFormat chooses the export format for the file.
func (s *Service) SetFormat(ctx context.Context, sessionID, fileName string, f Format) (*FileView, error) {
	return s.mutate(ctx, sessionID, fileName, func(fs *FileSession) error {
		fs.Format = f
		return nil
	})
}

// RemoveFile drops a file and its state from the session.
func (s *Service) RemoveFile(ctx context.Context, sessionID, fileName string) error {
	err := s.withSession(sessionID, func(sess *Session) error {
		if fileName == "" {
			return ErrNoFile
		}
		if !sess.remove(fileName) {
			return ErrFileNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.WithFields(ctx, "session", sessionID, "file", fileName).Info("file removed")
	s.record(ctx, audit.NewEvent(ctx, audit.ActionRemove, sessionID, fileName))
	return nil
}

// Convert runs a full pass for the file and encodes the projected table in
// format. The chosen format is remembered for the file. On failure no export
// is produced and the error is an *EncodeError or a pass error.
func (s *Service) Convert(ctx context.Context, sessionID, fileName string, format Format) (*Export, error) {
	var (
		exp  *Export
		rows int
		cols int
	)
	err := s.withSession(sessionID, func(sess *Session) error {
		fs, err := sess.file(fileName)
		if err != nil {
			return err
		}
		fs.Format = format

		res, err := s.runPass(ctx, fs)
		if err != nil {
			return err
		}
		rows, cols = res.projected.NumRows(), res.projected.NumCols()

		start := time.Now()
		exp, err = Encode(res.projected, fs.File.Name, format)
		logger := logging.WithFields(ctx, "session", sessionID, "file", fileName, "format", format.String())
		if err != nil {
			logger.Error("conversion failed", "error", err)
			return err
		}
		logger.Info("file converted",
			"output", exp.FileName,
			"rows", rows,
			"columns", cols,
			"bytes", exp.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})

	if errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if err != nil {
		s.observer.ConvertFailed(format)
		e := audit.NewEvent(ctx, audit.ActionConvertFail, sessionID, fileName)
		e.Format = format.String()
		e.Error = err.Error()
		s.record(ctx, e)
		return nil, err
	}

	s.observer.Converted(format, exp.Size())
	e := audit.NewEvent(ctx, audit.ActionConvert, sessionID, fileName)
	e.Format = format.String()
	e.Detail = exp.FileName
	e.Rows = rows
	e.Columns = cols
	e.Bytes = exp.Size()
	s.record(ctx, e)
	return exp, nil
}

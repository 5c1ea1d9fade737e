package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/audit"
	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// DefaultPreviewRows is how many rows a file preview shows.
const DefaultPreviewRows = 5

// ServiceConfig tunes a Service. Zero values select defaults.
type ServiceConfig struct {
	SessionTTL          time.Duration
	MaxConcurrentPasses int
	MaxPassWait         time.Duration
	PreviewRows         int
}

// Service runs the ingest and conversion pipeline for browser sessions.
type Service struct {
	store       *SessionStore
	limiter     *PassLimiter
	recorder    audit.Recorder
	observer    Observer
	previewRows int
}

// NewService creates a Service. A nil recorder logs audit events through
// slog; a nil observer discards metrics.
func NewService(cfg ServiceConfig, recorder audit.Recorder, observer Observer) *Service {
	if recorder == nil {
		recorder = audit.NewLogRecorder(nil)
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		store:       NewSessionStore(cfg.SessionTTL),
		limiter:     NewPassLimiter(cfg.MaxConcurrentPasses, cfg.MaxPassWait),
		recorder:    recorder,
		observer:    observer,
		previewRows: cfg.PreviewRows,
	}
}

// EnsureSession returns id when it names a live session, otherwise the ID of
// a newly created one.
func (s *Service) EnsureSession(id string) (sessionID string, created bool) {
	sess, created := s.store.GetOrCreate(id)
	if created {
		s.observer.SessionsActive(s.store.Len())
	}
	return sess.ID, created
}

// EndSession drops a session and all of its files.
func (s *Service) EndSession(id string) {
	s.store.Delete(id)
	s.observer.SessionsActive(s.store.Len())
}

// LimiterStatus reports pass limiter usage.
func (s *Service) LimiterStatus() PassLimiterStatus {
	return s.limiter.Status()
}

// WaitForPasses blocks until running passes finish or ctx ends.
func (s *Service) WaitForPasses(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// withSession runs fn with the session locked.
func (s *Service) withSession(sessionID string, fn func(*Session) error) error {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess)
}

// passResult holds the tables produced by one pass over a file.
type passResult struct {
	cleaned   *Table
	projected *Table
	selection ColumnSelection
	vis       *Visualization
}

// runPass decodes fs, replays its cleaning operations, projects and, when
// the chart is enabled, visualizes. A selection that no longer fits the
// cleaned table is reset to all columns with a notice.
func (s *Service) runPass(ctx context.Context, fs *FileSession) (res *passResult, err error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	defer func() { s.observer.PassCompleted(time.Since(start), err) }()

	t, err := Decode(fs.File)
	if err != nil {
		return nil, err
	}
	for _, op := range fs.Ops {
		if t, err = op.Apply(t); err != nil {
			return nil, fmt.Errorf("replay %s: %w", op, err)
		}
	}

	if fs.Selection != nil {
		if verr := ValidateSelection(t, fs.Selection); verr != nil {
			logging.WithFields(ctx, "file", fs.File.Name).Info("stale column selection reset", "error", verr)
			fs.Selection = nil
			fs.notice(fmt.Sprintf("Column selection for %s was reset because the file no longer has the selected columns.", fs.File.Name))
		}
	}
	projected, err := Project(t, fs.Selection)
	if err != nil {
		return nil, err
	}

	res = &passResult{cleaned: t, projected: projected, selection: fs.Selection}
	if fs.ShowChart {
		v := Visualize(fs.File.Name, projected)
		res.vis = &v
	}
	return res, nil
}

// FileView is the rendered state of one file after a pass.
type FileView struct {
	Name         string         `json:"name"`
	Size         int64          `json:"size"`
	UploadedAt   time.Time      `json:"uploadedAt"`
	Rows         int            `json:"rows"`
	Columns      int            `json:"columns"`
	Preview      *Table         `json:"-"`
	ColumnNames  []string       `json:"columnNames"`
	Selected     []string       `json:"selected"`
	Clean        bool           `json:"clean"`
	Ops          []CleanOp      `json:"ops"`
	ShowChart    bool           `json:"showChart"`
	ExportFormat Format         `json:"exportFormat"`
	Chart        *Visualization `json:"visualization,omitempty"`
	Notices      []string       `json:"notices,omitempty"`
	Error        *UserMessage   `json:"error,omitempty"`
	Err          error          `json:"-"`
}

// PreviewRows returns the preview as strings, missing cells as "".
func (v *FileView) PreviewRows() [][]string {
	if v.Preview == nil {
		return nil
	}
	rows := make([][]string, v.Preview.NumRows())
	for r := range rows {
		cells := v.Preview.Row(r)
		rows[r] = make([]string, len(cells))
		for c, cell := range cells {
			rows[r][c] = cell.String()
		}
	}
	return rows
}

// buildView runs a pass over fs and describes the result. Pass failures are
// captured in the view. When consume is set, pending notices are cleared.
func (s *Service) buildView(ctx context.Context, fs *FileSession, consume bool) *FileView {
	v := &FileView{
		Name:         fs.File.Name,
		Size:         fs.File.Size(),
		UploadedAt:   fs.File.UploadedAt,
		Clean:        fs.Clean,
		Ops:          append([]CleanOp(nil), fs.Ops...),
		ShowChart:    fs.ShowChart,
		ExportFormat: fs.Format,
	}

	res, err := s.runPass(ctx, fs)
	if err != nil {
		logging.WithFields(ctx, "file", fs.File.Name).Warn("processing pass failed", "error", err)
		msg := MapError(err)
		v.Error = &msg
		v.Err = err
	} else {
		v.Rows = res.cleaned.NumRows()
		v.Columns = res.cleaned.NumCols()
		v.Preview = res.cleaned.Head(s.previewRows)
		v.ColumnNames = res.cleaned.ColumnNames()
		if res.selection != nil {
			v.Selected = append([]string{}, res.selection...)
		} else {
			v.Selected = res.cleaned.ColumnNames()
		}
		v.Chart = res.vis
	}

	v.Notices = append([]string(nil), fs.Notices...)
	if consume {
		fs.Notices = nil
	}
	return v
}

// PageView is everything needed to render a session.
type PageView struct {
	SessionID string      `json:"sessionId"`
	Flash     []string    `json:"flash,omitempty"`
	Files     []*FileView `json:"files"`
}

// View runs a pass for every file in upload order. A failure in one file is
// reported in its view and does not affect the others. Flash messages and
// notices are consumed.
func (s *Service) View(ctx context.Context, sessionID string) (*PageView, error) {
	page := &PageView{SessionID: sessionID}
	err := s.withSession(sessionID, func(sess *Session) error {
		page.Flash = sess.takeFlash()
		page.Files = make([]*FileView, 0, len(sess.order))
		for _, name := range sess.order {
			page.Files = append(page.Files, s.buildView(ctx, sess.files[name], true))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FileView runs a pass for a single file without consuming its notices.
func (s *Service) FileView(ctx context.Context, sessionID, fileName string) (*FileView, error) {
	var v *FileView
	err := s.withSession(sessionID, func(sess *Session) error {
		fs, err := sess.file(fileName)
		if err != nil {
			return err
		}
		v = s.buildView(ctx, fs, false)
		return nil
	})
	return v, err
}

// Chart returns the visualization of a file regardless of its chart toggle.
func (s *Service) Chart(ctx context.Context, sessionID, fileName string) (*Visualization, error) {
	var vis Visualization
	err := s.withSession(sessionID, func(sess *Session) error {
		fs, err := sess.file(fileName)
		if err != nil {
			return err
		}
		res, err := s.runPass(ctx, fs)
		if err != nil {
			return err
		}
		vis = Visualize(fs.File.Name, res.projected)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &vis, nil
}

// record sends an audit event. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, e audit.Event) {
	if err := s.recorder.Record(ctx, e); err != nil {
		logging.WithFields(ctx, "action", string(e.Action), "file", e.FileName).
			Error("audit record failed", "error", err)
	}
}

// Files runs a pass for every file without consuming flash messages or
// notices.
func (s *Service) Files(ctx context.Context, sessionID string) ([]*FileView, error) {
	var views []*FileView
	err := s.withSession(sessionID, func(sess *Session) error {
		views = make([]*FileView, 0, len(sess.order))
		for _, name := range sess.order {
			views = append(views, s.buildView(ctx, sess.files[name], false))
		}
		return nil
	})
	return views, err
}

package core

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/datasweeper/internal/audit"
)

// memRecorder keeps audit events in memory.
type memRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *memRecorder) Record(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memRecorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

// countingObserver counts observer calls.
type countingObserver struct {
	NopObserver
	mu        sync.Mutex
	uploaded  int
	rejected  []string
	cleaned   int
	converted int
	failed    int
	sessions  int
}

func (o *countingObserver) FileUploaded(Format, int64) { o.mu.Lock(); o.uploaded++; o.mu.Unlock() }
func (o *countingObserver) FileRejected(code string) {
	o.mu.Lock()
	o.rejected = append(o.rejected, code)
	o.mu.Unlock()
}
func (o *countingObserver) CleanApplied(CleanOp)    { o.mu.Lock(); o.cleaned++; o.mu.Unlock() }
func (o *countingObserver) Converted(Format, int64) { o.mu.Lock(); o.converted++; o.mu.Unlock() }
func (o *countingObserver) ConvertFailed(Format)    { o.mu.Lock(); o.failed++; o.mu.Unlock() }
func (o *countingObserver) SessionsActive(n int)    { o.mu.Lock(); o.sessions = n; o.mu.Unlock() }

type testService struct {
	*Service
	recorder *memRecorder
	observer *countingObserver
	sid      string
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	rec := &memRecorder{}
	obs := &countingObserver{}
	svc := NewService(ServiceConfig{PreviewRows: 2}, rec, obs)
	sid, created := svc.EnsureSession("")
	if !created {
		t.Fatal("EnsureSession did not create a session")
	}
	return &testService{Service: svc, recorder: rec, observer: obs, sid: sid}
}

func csvFile(name, body string) UploadedFile {
	return UploadedFile{Name: name, Data: []byte(body)}
}

const sampleCSV = "id,value\n1,10\n1,10\n2,\n"

func TestService_UploadPartialFailure(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	xlsx := makeXLSX(t, [][]interface{}{{"a", "b"}, {1, 2}})
	outcomes, err := ts.Upload(ctx, ts.sid, []UploadedFile{
		csvFile("a.csv", sampleCSV),
		csvFile("b.txt", "hello"),
		{Name: "c.xlsx", Data: xlsx},
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !outcomes[0].Stored || outcomes[0].Rows != 3 || outcomes[0].Columns != 2 {
		t.Errorf("a.csv outcome = %+v", outcomes[0])
	}
	var unsupported *UnsupportedFormatError
	if outcomes[1].Stored || !errors.As(outcomes[1].Err, &unsupported) {
		t.Errorf("b.txt outcome = %+v", outcomes[1])
	}
	if !outcomes[2].Stored {
		t.Errorf("c.xlsx outcome = %+v", outcomes[2])
	}

	page, err := ts.View(ctx, ts.sid)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(page.Flash, []string{"Unsupported file type: .txt (b.txt)"}) {
		t.Errorf("Flash = %q", page.Flash)
	}
	if len(page.Files) != 2 || page.Files[0].Name != "a.csv" || page.Files[1].Name != "c.xlsx" {
		t.Fatalf("Files = %+v", page.Files)
	}
	if page.Files[0].Preview.NumRows() != 2 {
		t.Errorf("preview rows = %d, want 2", page.Files[0].Preview.NumRows())
	}

	again, _ := ts.View(ctx, ts.sid)
	if len(again.Flash) != 0 {
		t.Errorf("flash not consumed: %q", again.Flash)
	}

	if ts.observer.uploaded != 2 || !reflect.DeepEqual(ts.observer.rejected, []string{"FILE001"}) {
		t.Errorf("observer = %d uploaded, rejected %v", ts.observer.uploaded, ts.observer.rejected)
	}
	want := []audit.Action{audit.ActionUpload, audit.ActionUploadReject, audit.ActionUpload}
	if got := ts.recorder.actions(); !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
}

func TestService_UploadErrors(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	if _, err := ts.Upload(ctx, ts.sid, nil); !errors.Is(err, ErrNoFile) {
		t.Errorf("Upload(nil) = %v, want ErrNoFile", err)
	}
	if _, err := ts.Upload(ctx, "missing", []UploadedFile{csvFile("a.csv", sampleCSV)}); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Upload(missing session) = %v", err)
	}
}

func TestService_CleanAndConvert(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()

	if _, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("a.csv", sampleCSV)}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.SetClean(ctx, ts.sid, "a.csv", true); err != nil {
		t.Fatal(err)
	}

	v, err := ts.ApplyDeduplicate(ctx, ts.sid, "a.csv")
	if err != nil {
		t.Fatalf("ApplyDeduplicate() error = %v", err)
	}
	if v.Rows != 2 {
		t.Errorf("rows after dedup = %d, want 2", v.Rows)
	}

	v, err = ts.ApplyFillMissing(ctx, ts.sid, "a.csv")
	if err != nil {
		t.Fatalf("ApplyFillMissing() error = %v", err)
	}
	if got := v.PreviewRows(); !reflect.DeepEqual(got, [][]string{{"1", "10"}, {"2", "10"}}) {
		t.Errorf("preview = %q", got)
	}
	if !reflect.DeepEqual(v.Notices, []string{"Duplicates Removed!", "Missing Values have been Filled!"}) {
		t.Errorf("Notices = %q", v.Notices)
	}

	page, _ := ts.View(ctx, ts.sid)
	if len(page.Files[0].Notices) != 2 {
		t.Errorf("View notices = %q", page.Files[0].Notices)
	}
	page, _ = ts.View(ctx, ts.sid)
	if len(page.Files[0].Notices) != 0 {
		t.Errorf("notices not consumed: %q", page.Files[0].Notices)
	}

	if _, err := ts.SelectColumns(ctx, ts.sid, "a.csv", ColumnSelection{"value", "id"}); err != nil {
		t.Fatal(err)
	}

	exp, err := ts.Convert(ctx, ts.sid, "a.csv", FormatCSV)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	body, _ := io.ReadAll(exp.Body)
	if string(body) != "value,id\n10,1\n10,2\n" {
		t.Errorf("body = %q", body)
	}

	exp, err = ts.Convert(ctx, ts.sid, "a.csv", FormatXLSX)
	if err != nil {
		t.Fatal(err)
	}
	if exp.FileName != "a.xlsx" || exp.MIMEType != MIMEXLSX {
		t.Errorf("export = %q %q", exp.FileName, exp.MIMEType)
	}

	v, _ = ts.FileView(ctx, ts.sid, "a.csv")
	if v.ExportFormat != FormatXLSX {
		t.Errorf("ExportFormat = %v, want xlsx", v.ExportFormat)
	}
	if ts.observer.cleaned != 2 || ts.observer.converted != 2 {
		t.Errorf("observer cleaned=%d converted=%d", ts.observer.cleaned, ts.observer.converted)
	}
}

func TestService_SelectColumnsInvalid(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	if _, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("a.csv", sampleCSV)}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.SelectColumns(ctx, ts.sid, "a.csv", ColumnSelection{"value"}); err != nil {
		t.Fatal(err)
	}

	_, err := ts.SelectColumns(ctx, ts.sid, "a.csv", ColumnSelection{"value", "nope"})
	var colErr *InvalidColumnError
	if !errors.As(err, &colErr) || colErr.Column != "nope" {
		t.Fatalf("SelectColumns() error = %v, want *InvalidColumnError", err)
	}

	v, _ := ts.FileView(ctx, ts.sid, "a.csv")
	if !reflect.DeepEqual(v.Selected, []string{"value"}) {
		t.Errorf("Selected = %q, want previous selection", v.Selected)
	}

	v, err = ts.SelectColumns(ctx, ts.sid, "a.csv", nil)
	if err != nil || !reflect.DeepEqual(v.Selected, []string{"id", "value"}) {
		t.Errorf("reset selection = %q, %v", v.Selected, err)
	}
}

func TestService_ReuploadResetsStaleSelection(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	if _, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("a.csv", sampleCSV)}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.SelectColumns(ctx, ts.sid, "a.csv", ColumnSelection{"value"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.SetShowChart(ctx, ts.sid, "a.csv", true); err != nil {
		t.Fatal(err)
	}

	outcomes, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("a.csv", "x,y\n1,2\n")})
	if err != nil || !outcomes[0].Replaced {
		t.Fatalf("re-upload = %+v, %v", outcomes, err)
	}

	page, _ := ts.View(ctx, ts.sid)
	f := page.Files[0]
	if !reflect.DeepEqual(f.Selected, []string{"x", "y"}) {
		t.Errorf("Selected = %q", f.Selected)
	}
	if !f.ShowChart {
		t.Error("chart setting lost on re-upload")
	}
	if len(f.Notices) != 1 || !strings.Contains(f.Notices[0], "was reset") {
		t.Errorf("Notices = %q", f.Notices)
	}
}

func TestService_Chart(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	data := "a,b,c\n1,2,3\n4,5,6\n"
	if _, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("n.csv", data), csvFile("s.csv", sampleCSV)}); err != nil {
		t.Fatal(err)
	}

	vis, err := ts.Chart(ctx, ts.sid, "n.csv")
	if err != nil || vis.Chart == nil || vis.Chart.Column != "c" {
		t.Fatalf("Chart(n.csv) = %+v, %v", vis, err)
	}

	v, _ := ts.SetShowChart(ctx, ts.sid, "s.csv", true)
	if v.Chart == nil || v.Chart.Warning == "" {
		t.Errorf("expected warning for s.csv, got %+v", v.Chart)
	}

	v, _ = ts.SetShowChart(ctx, ts.sid, "s.csv", false)
	if v.Chart != nil {
		t.Error("chart shown while disabled")
	}
}

func TestService_RemoveFile(t *testing.T) {
	ts := newTestService(t)
	ctx := context.Background()
	if _, err := ts.Upload(ctx, ts.sid, []UploadedFile{csvFile("a.csv", sampleCSV)}); err != nil {
		t.Fatal(err)
	}

	if err := ts.RemoveFile(ctx, ts.sid, "a.csv"); err != nil {
		t.Fatal(err)
	}
	if err := ts.RemoveFile(ctx, ts.sid, "a.csv"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second RemoveFile = %v", err)
	}
	if _, err := ts.Convert(ctx, ts.sid, "a.csv", FormatCSV); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Convert(removed) = %v", err)
	}
	if ts.observer.failed != 1 {
		t.Errorf("ConvertFailed calls = %d, want 1", ts.observer.failed)
	}
}

func TestService_ApplyCleanUnknownOp(t *testing.T) {
	ts := newTestService(t)
	if _, err := ts.ApplyClean(context.Background(), ts.sid, "a.csv", CleanOp("shuffle")); err == nil {
		t.Error("ApplyClean(shuffle) succeeded")
	}
}

func TestService_SweepSessions(t *testing.T) {
	ts := newTestService(t)
	now := time.Now()
	ts.store.now = func() time.Time { return now.Add(DefaultSessionTTL + time.Minute) }

	if removed := ts.sweepSessions(); removed != 1 {
		t.Errorf("sweepSessions() = %d, want 1", removed)
	}
	if ts.observer.sessions != 0 {
		t.Errorf("SessionsActive = %d, want 0", ts.observer.sessions)
	}
	if _, err := ts.View(context.Background(), ts.sid); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("View after sweep = %v", err)
	}
}

func TestService_EndSession(t *testing.T) {
	ts := newTestService(t)
	ts.EndSession(ts.sid)
	if _, err := ts.Files(context.Background(), ts.sid); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Files after EndSession = %v", err)
	}
}

// lockCheckRecorder notes whether the session was locked during Record.
type lockCheckRecorder struct {
	store   *SessionStore
	sid     string
	calls   int
	blocked int
}

func (r *lockCheckRecorder) Record(_ context.Context, _ audit.Event) error {
	r.calls++
	sess, err := r.store.Get(r.sid)
	if err != nil {
		return err
	}
	if !sess.mu.TryLock() {
		r.blocked++
		return nil
	}
	sess.mu.Unlock()
	return nil
}

func TestService_UploadRecordsOutsideSessionLock(t *testing.T) {
	svc := NewService(ServiceConfig{}, nil, nil)
	sid, _ := svc.EnsureSession("")
	rec := &lockCheckRecorder{store: svc.store, sid: sid}
	svc.recorder = rec

	_, err := svc.Upload(context.Background(), sid, []UploadedFile{
		csvFile("a.csv", sampleCSV),
		csvFile("b.txt", "hello"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.calls != 2 {
		t.Errorf("Record called %d times, want 2", rec.calls)
	}
	if rec.blocked != 0 {
		t.Errorf("%d events recorded while the session was locked", rec.blocked)
	}
}

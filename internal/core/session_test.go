package core

import (
	"errors"
	"testing"
	"time"
)

func TestSessionStore_GetOrCreate(t *testing.T) {
	st := NewSessionStore(time.Minute)

	s, created := st.GetOrCreate("")
	if !created || s.ID == "" {
		t.Fatalf("GetOrCreate(\"\") = (%v, %v)", s.ID, created)
	}

	again, created := st.GetOrCreate(s.ID)
	if created || again != s {
		t.Error("existing session was not returned")
	}

	other, created := st.GetOrCreate("forged-id")
	if !created || other.ID == "forged-id" {
		t.Errorf("unknown ID reused: %q", other.ID)
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st := NewSessionStore(10 * time.Minute)
	st.now = func() time.Time { return now }

	idle, _ := st.GetOrCreate("")
	active, _ := st.GetOrCreate("")

	now = now.Add(8 * time.Minute)
	if _, err := st.Get(active.ID); err != nil {
		t.Fatalf("Get(active) = %v", err)
	}

	now = now.Add(4 * time.Minute)
	if _, err := st.Get(idle.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(idle) = %v, want ErrSessionNotFound", err)
	}
	if _, err := st.Get(active.ID); err != nil {
		t.Errorf("Get(active) after refresh = %v", err)
	}

	if removed := st.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}

	replaced, created := st.GetOrCreate(idle.ID)
	if !created || replaced.ID == idle.ID {
		t.Error("expired ID was revived")
	}
}

func TestSessionStore_Delete(t *testing.T) {
	st := NewSessionStore(0)
	if st.TTL() != DefaultSessionTTL {
		t.Errorf("TTL() = %v, want %v", st.TTL(), DefaultSessionTTL)
	}
	s, _ := st.GetOrCreate("")
	st.Delete(s.ID)
	if _, err := st.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after Delete = %v", err)
	}
}

func TestSession_Files(t *testing.T) {
	s := newSession("s1", time.Now())
	s.put(newFileSession(UploadedFile{Name: "a.csv"}))
	s.put(newFileSession(UploadedFile{Name: "b.csv"}))
	s.put(&FileSession{File: UploadedFile{Name: "a.csv", Data: []byte("x")}})

	if len(s.order) != 2 || s.order[0] != "a.csv" {
		t.Errorf("order = %v, want [a.csv b.csv]", s.order)
	}
	fs, err := s.file("a.csv")
	if err != nil || string(fs.File.Data) != "x" {
		t.Errorf("file(a.csv) = %v, %v", fs, err)
	}
	if _, err := s.file(""); !errors.Is(err, ErrNoFile) {
		t.Errorf("file(\"\") = %v", err)
	}
	if _, err := s.file("zzz.csv"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("file(zzz) = %v", err)
	}

	if !s.remove("a.csv") || s.remove("a.csv") {
		t.Error("remove should succeed once")
	}
	if len(s.order) != 1 || s.order[0] != "b.csv" {
		t.Errorf("order after remove = %v", s.order)
	}

	s.flash = []string{"m"}
	if got := s.takeFlash(); len(got) != 1 || s.flash != nil {
		t.Errorf("takeFlash() = %v, remaining %v", got, s.flash)
	}
}

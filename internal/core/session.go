package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an idle session is kept in memory.
const DefaultSessionTTL = 30 * time.Minute

// FileSession is the UI state of one uploaded file. Every field is explicit;
// a processing pass is fully determined by it.
type FileSession struct {
	File      UploadedFile
	Clean     bool
	Ops       []CleanOp
	Selection ColumnSelection // nil means all columns in original order
	ShowChart bool
	Format    Format
	Notices   []string
}

func newFileSession(f UploadedFile) *FileSession {
	return &FileSession{File: f, Format: FormatCSV}
}

func (fs *FileSession) notice(msg string) {
	fs.Notices = append(fs.Notices, msg)
}

// Session is one browser's set of files, keyed by file name.
// Fields other than ID are guarded by mu.
type Session struct {
	ID string

	mu       sync.Mutex
	files    map[string]*FileSession
	order    []string
	flash    []string
	lastSeen atomic.Int64
}

func newSession(id string, now time.Time) *Session {
	s := &Session{
		ID:    id,
		files: make(map[string]*FileSession),
	}
	s.touch(now)
	return s
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// LastSeen returns the time of the last access.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// put stores fs, replacing a file of the same name in place.
func (s *Session) put(fs *FileSession) {
	name := fs.File.Name
	if _, ok := s.files[name]; !ok {
		s.order = append(s.order, name)
	}
	s.files[name] = fs
}

func (s *Session) file(name string) (*FileSession, error) {
	if name == "" {
		return nil, ErrNoFile
	}
	fs, ok := s.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return fs, nil
}

func (s *Session) remove(name string) bool {
	if _, ok := s.files[name]; !ok {
		return false
	}
	delete(s.files, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// takeFlash returns and clears pending session-level messages.
func (s *Session) takeFlash() []string {
	f := s.flash
	s.flash = nil
	return f
}

// SessionStore holds sessions in memory. Nothing is persisted.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store expiring sessions idle for longer than ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the idle expiry.
func (st *SessionStore) TTL() time.Duration { return st.ttl }

func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastSeen()) > st.ttl
}

// Get returns a live session and refreshes its idle timer.
// Unknown and expired IDs return ErrSessionNotFound.
func (st *SessionStore) Get(id string) (*Session, error) {
	now := st.now()
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || st.expired(s, now) {
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// GetOrCreate returns the session for id, or a new one with a fresh ID when
// id is unknown or expired. created reports whether a new session was made.
func (st *SessionStore) GetOrCreate(id string) (s *Session, created bool) {
	if s, err := st.Get(id); err == nil {
		return s, false
	}
	now := st.now()
	s = newSession(uuid.NewString(), now)

	st.mu.Lock()
	if id != "" {
		delete(st.sessions, id)
	}
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s, true
}

// Delete drops a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Sweep removes expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions held, expired or not.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

package core

// session.go holds per-session, per-file state in memory.
//
// A Session owns the files uploaded in one browser session. Every file keeps
// its working table plus the UI choices made for it (cleaning enabled,
// selected columns, chart shown, conversion target). Nothing is persisted:
// sessions that stay idle longer than the TTL are dropped by Sweep.

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sweeper/internal/table"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")

	// ErrFileNotFound is returned for file IDs not present in the session.
	ErrFileNotFound = errors.New("file not found")

	// ErrTooManyFiles is returned when a session already holds the maximum
	// number of files.
	ErrTooManyFiles = errors.New("too many files in session")
)

// FileState is the state of one uploaded file.
type FileState struct {
	ID         string
	Name       string
	Size       int64
	Format     table.Format
	UploadedAt time.Time

	// Working is the loaded table after any duplicate removal or fill.
	Working *table.Table

	Cleaning  bool
	ShowChart bool
	Target    table.Format

	// Selected holds the chosen column names in order; nil means all.
	Selected []string
}

// View returns the table the user currently sees. The column selection only
// applies while cleaning is enabled.
func (f *FileState) View() *table.Table {
	if !f.Cleaning || f.Selected == nil {
		return f.Working
	}
	view, err := table.SelectColumns(f.Working, f.Selected)
	if err != nil {
		// Selected is validated on write and Working never loses columns.
		return f.Working
	}
	return view
}

// selection is the chosen column order, or every column when nothing was
// chosen. The result never aliases f.Selected.
func (f *FileState) selection() []string {
	if f.Selected == nil {
		return f.Working.Names()
	}
	return append([]string{}, f.Selected...)
}

// Summary returns a snapshot of the file's state.
func (f *FileState) Summary() FileSummary {
	return FileSummary{
		ID:         f.ID,
		Name:       f.Name,
		Size:       f.Size,
		Format:     f.Format.String(),
		Rows:       f.Working.NumRows(),
		Columns:    columnInfo(f.Working, f.Selected),
		Selected:   f.selection(),
		Missing:    f.Working.MissingCount(),
		Cleaning:   f.Cleaning,
		ShowChart:  f.ShowChart,
		Target:     f.Target.String(),
		UploadedAt: f.UploadedAt,
	}
}

// Session is one user's set of files. All access goes through the session's
// mutex; operations on different sessions never contend.
type Session struct {
	ID string

	mu       sync.Mutex
	files    map[string]*FileState
	order    []string
	notices  []Notice
	lastSeen time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:       uuid.New().String(),
		files:    make(map[string]*FileState),
		lastSeen: now,
	}
}

// file returns the file with id. Caller must hold s.mu.
func (s *Session) file(id string) (*FileState, error) {
	f, ok := s.files[id]
	if !ok {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// put stores f, replacing any file with the same name so that re-uploading
// a file starts it over. It returns false when the session is full. Caller
// must hold s.mu.
func (s *Session) put(f *FileState, maxFiles int) bool {
	for _, id := range s.order {
		if s.files[id].Name == f.Name {
			f.ID = id
			s.files[id] = f
			return true
		}
	}
	if maxFiles > 0 && len(s.order) >= maxFiles {
		return false
	}
	s.files[f.ID] = f
	s.order = append(s.order, f.ID)
	return true
}

// remove deletes the file with id. Caller must hold s.mu.
func (s *Session) remove(id string) error {
	if _, ok := s.files[id]; !ok {
		return ErrFileNotFound
	}
	delete(s.files, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ordered returns the files in upload order. Caller must hold s.mu.
func (s *Session) ordered() []*FileState {
	out := make([]*FileState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.files[id])
	}
	return out
}

// SessionStore keeps sessions in memory with an idle TTL.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates a store whose sessions expire after ttl without
// use. A non-positive ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new empty session.
func (st *SessionStore) Create() *Session {
	s := newSession(st.now())

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

// Get returns the session with id and marks it as used.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := st.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.expired(s, now) {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = now
	return s, nil
}

// Delete drops the session with id.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of sessions held, including expired ones not yet
// swept.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (st *SessionStore) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		s.mu.Lock()
		expired := st.expired(s, now)
		s.mu.Unlock()
		if expired {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// expired reports whether s has been idle longer than the TTL. Caller must
// hold s.mu.
func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && now.Sub(s.lastSeen) > st.ttl
}

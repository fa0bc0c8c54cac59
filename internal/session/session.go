// Package session holds the operator's in-memory navigation state:
// last process view, current directory and pending uploads. Created at
// process start, never persisted, reconstructed from defaults on restart.
package session

import (
	"sync"

	"github.com/danmuck/hostctl/internal/procs"
)

// PendingUpload ties a chosen destination directory to a document the
// operator supplied in a later, independent event.
type PendingUpload struct {
	Dir      string
	FileID   string
	FileName string
	Size     int64
}

// State is owned by the router and passed into handlers; there is no
// ambient global. Only one operator exists, so most fields are scalar;
// the upload maps stay keyed by chat id defensively.
type State struct {
	mu sync.Mutex

	lastCategory procs.Category
	lastPage     int
	currentDir   string

	uploadTargets  map[int64]string
	pendingUploads map[int64]PendingUpload
}

func New(homeDir string) *State {
	return &State{
		lastCategory:   procs.CategoryApps,
		currentDir:     homeDir,
		uploadTargets:  make(map[int64]string),
		pendingUploads: make(map[int64]PendingUpload),
	}
}

func (s *State) LastProcessView() (procs.Category, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCategory, s.lastPage
}

func (s *State) SetLastProcessView(cat procs.Category, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCategory = cat
	if page < 0 {
		page = 0
	}
	s.lastPage = page
}

func (s *State) CurrentDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDir
}

func (s *State) SetCurrentDir(dir string) {
	if dir == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDir = dir
}

// SetUploadTarget records the destination directory the operator picked.
func (s *State) SetUploadTarget(chatID int64, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadTargets[chatID] = dir
}

// UploadTarget returns the pending destination, if any.
func (s *State) UploadTarget(chatID int64) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, ok := s.uploadTargets[chatID]
	return dir, ok
}

// ClearUploadTarget drops the pending destination.
func (s *State) ClearUploadTarget(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploadTargets, chatID)
}

// SetPendingUpload stages a bound upload awaiting confirmation.
func (s *State) SetPendingUpload(chatID int64, up PendingUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingUploads[chatID] = up
}

// TakePendingUpload removes and returns the staged upload.
func (s *State) TakePendingUpload(chatID int64) (PendingUpload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	up, ok := s.pendingUploads[chatID]
	delete(s.pendingUploads, chatID)
	return up, ok
}

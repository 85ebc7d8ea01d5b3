package page

import "sync"

// Placeholder is served until the first successful refresh.
var Placeholder = []byte(`<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>uptimers</title></head>
<body><p>No status yet. The first check is still running.</p></body></html>
`)

// Snapshot holds the rendered page. Stored slices are never modified
// afterwards, so readers may keep what Load returns.
type Snapshot struct {
	mu   sync.RWMutex
	page []byte
}

func NewSnapshot() *Snapshot {
	return &Snapshot{page: Placeholder}
}

func (s *Snapshot) Load() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Store replaces the page. The caller hands over ownership of b.
func (s *Snapshot) Store(b []byte) {
	s.mu.Lock()
	s.page = b
	s.mu.Unlock()
}

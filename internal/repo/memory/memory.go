package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/repo"
)

var _ repo.FactStore = (*Store)(nil)

type factKey struct {
	site string
	ts   int64
}

// Store keeps facts and sites in process memory. Nothing survives a restart.
type Store struct {
	mu    sync.RWMutex
	facts map[factKey]domain.Fact
	sites map[string]domain.Site
}

func New() *Store {
	return &Store{
		facts: make(map[factKey]domain.Fact),
		sites: make(map[string]domain.Site),
	}
}

func (m *Store) LastFact(ctx context.Context, site string) (*domain.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *domain.Fact
	for k, f := range m.facts {
		if k.site != site {
			continue
		}
		if last == nil || f.Timestamp.After(last.Timestamp) {
			f := f
			last = &f
		}
	}
	return last, nil
}

func (m *Store) InsertFactIfAbsent(ctx context.Context, f domain.Fact) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := factKey{site: f.Site, ts: f.Timestamp.UnixNano()}
	if _, ok := m.facts[k]; ok {
		return false, nil
	}
	f.Timestamp = f.Timestamp.UTC()
	m.facts[k] = f
	return true, nil
}

func (m *Store) UpsertSite(ctx context.Context, s domain.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[s.Site] = s
	return nil
}

func (m *Store) AggregatedStatus(ctx context.Context, keys []string, since time.Time) ([]domain.AggregatedStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type acc struct {
		last     domain.Fact
		hasLast  bool
		ok, seen int
	}
	want := make(map[string]*acc, len(keys))
	for _, k := range keys {
		want[k] = &acc{}
	}
	for _, f := range m.facts {
		a := want[f.Site]
		if a == nil {
			continue
		}
		if !a.hasLast || f.Timestamp.After(a.last.Timestamp) {
			a.last, a.hasLast = f, true
		}
		if !f.Timestamp.Before(since) {
			a.seen++
			if f.Success {
				a.ok++
			}
		}
	}

	out := make([]domain.AggregatedStatus, 0, len(want))
	for key, a := range want {
		s, ok := m.sites[key]
		if !ok || a.seen == 0 {
			continue
		}
		out = append(out, domain.AggregatedStatus{
			Site:       key,
			Name:       s.Name,
			Timestamp:  a.last.Timestamp,
			Success:    a.last.Success,
			StatusCode: a.last.StatusCode,
			Avg:        float64(a.ok) / float64(a.seen),
		})
	}
	return out, nil
}

// FactCount returns how many facts are stored for site.
func (m *Store) FactCount(site string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for k := range m.facts {
		if k.site == site {
			n++
		}
	}
	return n
}

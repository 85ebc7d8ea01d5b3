package page

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/repo"
)

//go:embed templates/*.html
var files embed.FS

var indexTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
	"stamp":   func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}).ParseFS(files, "templates/index.html"))

type indexData struct {
	Sites     []domain.AggregatedStatus
	Generated time.Time
}

// Publisher renders the aggregated status of the configured sites into a Snapshot.
type Publisher struct {
	store repo.StatusQuerier
	keys  []string
	snap  *Snapshot
	log   *zap.Logger
	tmpl  *template.Template
	// Now is the clock; tests pin it.
	Now func() time.Time
}

func NewPublisher(store repo.StatusQuerier, sites []domain.Site, snap *Snapshot, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{
		store: store,
		keys:  domain.SiteKeys(sites),
		snap:  snap,
		log:   log,
		tmpl:  indexTmpl,
		Now:   time.Now,
	}
}

// Refresh queries, renders and swaps the page. On error the previous page
// stays in place.
func (p *Publisher) Refresh(ctx context.Context) error {
	now := p.Now().UTC()
	rows, err := p.store.AggregatedStatus(ctx, p.keys, now.Add(-repo.AvgWindow))
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Site < rows[j].Site
	})

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, indexData{Sites: rows, Generated: now}); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	p.snap.Store(buf.Bytes())
	p.log.Debug("page_published", zap.Int("sites", len(rows)), zap.Int("bytes", buf.Len()))
	return nil
}

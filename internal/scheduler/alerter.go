package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimers/internal/domain"
	"github.com/hamed0406/uptimers/internal/notify"
	"github.com/hamed0406/uptimers/internal/repo"
)

const (
	titleUp   = "✅ UP"
	titleDown = "❌ DOWN"
)

// Alerter notifies when a site's success flips relative to its last stored fact.
type Alerter struct {
	facts    repo.FactReader
	notifier notify.Notifier
	log      *zap.Logger
}

func NewAlerter(facts repo.FactReader, notifier notify.Notifier, log *zap.Logger) *Alerter {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{facts: facts, notifier: notifier, log: log}
}

// Evaluate must run before the outcome is written. A site with no stored
// facts counts as previously up, so a first probe that fails is reported.
//
// notified is true when a transition was seen and the notifier was invoked,
// whether or not delivery succeeded. Delivery errors are logged, never
// returned; err is only a failure to read the last fact.
func (a *Alerter) Evaluate(ctx context.Context, site domain.Site, o domain.Outcome) (notified bool, err error) {
	last, err := a.facts.LastFact(ctx, site.Site)
	if err != nil {
		return false, fmt.Errorf("evaluate %s: %w", site.Site, err)
	}
	prev := true
	if last != nil {
		prev = last.Success
	}
	if prev == o.Success {
		return false, nil
	}

	title, text := message(site, o)
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("notify_failed",
			zap.String("site", site.Site),
			zap.Bool("success", o.Success),
			zap.Error(err),
		)
	} else {
		a.log.Info("notify_sent",
			zap.String("site", site.Site),
			zap.Bool("success", o.Success),
			zap.Int("status_code", o.StatusCode),
		)
	}
	return true, nil
}

func message(site domain.Site, o domain.Outcome) (title, text string) {
	title, state := titleDown, "down"
	if o.Success {
		title, state = titleUp, "up"
	}
	text = fmt.Sprintf("%s is %s (HTTP %d)\nURL: %s\nChecked: %s",
		site.Name, state, o.StatusCode, site.Site, o.Timestamp.Format(time.RFC3339))
	return title, text
}

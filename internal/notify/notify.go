package notify

//go:generate mockgen -source=notify.go -destination=mock_notifier.go -package=notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers a human-readable message to an external channel.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a message out to every channel. All channels are tried; their
// errors are combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Nop discards every message.
type Nop struct{}

func (Nop) Send(context.Context, string, string) error { return nil }

// New builds a notifier from the optional shoutrrr URL and Slack webhook.
// With neither configured it returns Nop.
func New(shoutrrrURL, slackWebhook string) (Notifier, error) {
	var m Multi
	if shoutrrrURL != "" {
		s, err := NewShoutrrr(shoutrrrURL)
		if err != nil {
			return nil, err
		}
		m = append(m, s)
	}
	if s := NewSlack(slackWebhook); s != nil {
		m = append(m, s)
	}
	switch len(m) {
	case 0:
		return Nop{}, nil
	case 1:
		return m[0], nil
	}
	return m, nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/types"
	"go.uber.org/multierr"
)

// sender is the part of shoutrrr's router we use.
type sender interface {
	Send(message string, params *types.Params) []error
}

// Shoutrrr sends through any service URL shoutrrr understands
// (telegram://, discord://, smtp://, generic+https://, ...).
type Shoutrrr struct {
	router sender
}

// NewShoutrrr parses the service URL up front so a typo fails at startup.
func NewShoutrrr(rawURL string) (*Shoutrrr, error) {
	r, err := shoutrrr.CreateSender(rawURL)
	if err != nil {
		return nil, fmt.Errorf("shoutrrr: %w", err)
	}
	return &Shoutrrr{router: r}, nil
}

func (s *Shoutrrr) Send(ctx context.Context, title, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := types.Params{"title": title}
	if err := multierr.Combine(s.router.Send(text, &params)...); err != nil {
		return fmt.Errorf("shoutrrr send: %w", err)
	}
	return nil
}

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

// Sender delivers a composed document to a single recipient
type Sender interface {
	Send(ctx context.Context, to string, doc domain.RenderedDocument) error
}

// Dispatcher fans one document out to every configured recipient
type Dispatcher struct {
	sender Sender
}

// New creates a dispatcher using the given transport
func New(sender Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Run attempts delivery to each recipient in order. A failed recipient is
// logged and recorded but does not stop the remaining deliveries; the
// returned error reports the run as a whole and is nil only if every
// recipient succeeded.
func (d *Dispatcher) Run(ctx context.Context, doc domain.RenderedDocument, recipients []string) error {
	if len(recipients) == 0 {
		return errors.New("no recipients configured")
	}

	failed := 0
	for _, to := range recipients {
		if err := d.sender.Send(ctx, to, doc); err != nil {
			lgr.Printf("[WARN] delivery to %s failed: %v", to, err)
			failed++
			continue
		}
		lgr.Printf("[INFO] delivered to %s", to)
	}

	if failed > 0 {
		return fmt.Errorf("delivery failed for %d of %d recipients", failed, len(recipients))
	}
	return nil
}

package capture

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/logging"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often BrowserSource drains the page buffer.
const DefaultPollInterval = 250 * time.Millisecond

// Page is the part of a browser tab the recorder needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// Install runs script in the current document and in every document
	// loaded afterwards.
	Install(ctx context.Context, script string) error
	// Evaluate runs expr and returns its JSON-encoded result.
	Evaluate(ctx context.Context, expr string) ([]byte, error)
}

// BrowserSource polls the collector queue of a live page.
type BrowserSource struct {
	Page     Page
	URL      string
	Interval time.Duration
	Policy   Policy
}

// Run implements Source. Channel failures are retried per Policy; once
// retries are exhausted Run returns a SESSION_FAILED error. On cancellation
// the page queue is drained one last time.
func (s *BrowserSource) Run(ctx context.Context, out chan<- Event) error {
	policy := s.Policy
	if policy.Attempts == 0 {
		policy = DefaultPolicy()
		policy.SessionID = s.Policy.SessionID
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := logging.NewLogger("capture")

	if err := Retry(ctx, policy, func() error {
		if err := s.Page.Install(ctx, CollectorScript); err != nil {
			return errors.Transient("install collector", err)
		}
		if s.URL != "" {
			if err := s.Page.Navigate(ctx, s.URL); err != nil {
				return errors.Transient("navigate", err).WithDetail("url", s.URL)
			}
		}
		return nil
	}); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	logger.WithField("url", s.URL).Info("Collector installed")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalDrain(out, logger)
			return nil
		case <-ticker.C:
			var events []Event
			err := Retry(ctx, policy, func() error {
				var err error
				events, err = s.drain(ctx, logger)
				return err
			})
			if err != nil {
				if ctx.Err() != nil {
					s.finalDrain(out, logger)
					return nil
				}
				return err
			}
			for _, ev := range events {
				if !send(ctx, out, ev) {
					return nil
				}
			}
		}
	}
}

// finalDrain picks up events queued since the last poll. It runs after the
// session context is gone, so it uses its own short deadline.
func (s *BrowserSource) finalDrain(out chan<- Event, logger *logrus.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	events, err := s.drain(ctx, logger)
	if err != nil {
		logger.WithError(err).Debug("Final drain failed")
		return
	}
	for _, ev := range events {
		if !send(ctx, out, ev) {
			logger.WithField("lost", len(events)).Warn("Feed full during final drain")
			return
		}
	}
}

func (s *BrowserSource) drain(ctx context.Context, logger *logrus.Entry) ([]Event, error) {
	raw, err := s.Page.Evaluate(ctx, DrainExpression)
	if err != nil {
		return nil, errors.Transient("drain collector", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Transient("decode collector queue", err)
	}
	events := make([]Event, 0, len(items))
	for i, item := range items {
		ev, err := DecodeEvent(item)
		if err != nil {
			logger.WithError(err).WithField("index", i).Warn("Skipping malformed event")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

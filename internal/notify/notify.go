// Package notify announces approved articles to their audience.
//
// Delivery is best effort: the Dispatcher bounds every attempt, turns
// failures and panics into a returned warning, and never lets them reach
// the approval that triggered them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/TobiSchelling/newsdesk/internal/compose"
)

// DefaultTimeout bounds a single dispatch when none is configured.
const DefaultTimeout = 5 * time.Second

// approvalSpace namespaces idempotency keys.
var approvalSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("newsdesk:approval"))

// ApprovalEvent describes one committed approval.
type ApprovalEvent struct {
	Key        uuid.UUID `json:"key"`
	ArticleID  int64     `json:"article_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Publisher  string    `json:"publisher,omitempty"`
	Excerpt    string    `json:"excerpt"`
	URL        string    `json:"url,omitempty"`
	ApprovedBy int64     `json:"approved_by"`
	ApprovedAt time.Time `json:"approved_at"`
	Recipients []string  `json:"recipients"`
}

// EventKey is stable for a given approval so receivers can drop repeats.
func EventKey(articleID int64, approvedAt time.Time) uuid.UUID {
	name := strconv.FormatInt(articleID, 10) + "@" + approvedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(approvalSpace, []byte(name))
}

// Notice returns the human-readable form of the event.
func (e ApprovalEvent) Notice() compose.Notice {
	return compose.Notice{
		Title:     e.Title,
		Author:    e.Author,
		Publisher: e.Publisher,
		Excerpt:   e.Excerpt,
		URL:       e.URL,
	}
}

// Notifier delivers approval events.
type Notifier interface {
	NotifyApproved(ctx context.Context, ev ApprovalEvent) error
}

// Dispatcher runs a Notifier with a deadline and panic recovery.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher wraps n. A nil n makes Dispatch a no-op.
func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

// Dispatch delivers ev and returns a non-nil warning when delivery failed,
// timed out or panicked. The warning is already logged.
func (d *Dispatcher) Dispatch(ctx context.Context, ev ApprovalEvent) error {
	if d == nil || d.notifier == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panicked: %v", r)
			}
		}()
		done <- d.notifier.NotifyApproved(ctx, ev)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("notification timed out after %s: %w", d.timeout, err)
	}
	d.logger.Warn("approval notification failed",
		"article_id", ev.ArticleID,
		"key", ev.Key.String(),
		"error", err,
	)
	return err
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyApproved(_ context.Context, ev ApprovalEvent) error {
	n.logger.Info("article approved",
		"article_id", ev.ArticleID,
		"subject", ev.Notice().Subject(),
		"recipients", len(ev.Recipients),
		"key", ev.Key.String(),
	)
	return nil
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

var _ Notifier = Multi(nil)

func (m Multi) NotifyApproved(ctx context.Context, ev ApprovalEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyApproved(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

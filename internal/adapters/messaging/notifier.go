package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
)

const (
	defaultBuffer  = 256
	publishTimeout = 5 * time.Second
)

// AsyncNotifier hands notices to a sink on a background worker. Announce never
// blocks; when the buffer is full the notice is dropped and logged.
type AsyncNotifier struct {
	sink   NoticeSink
	logger *slog.Logger
	queue  chan Notice
	now    func() time.Time

	once sync.Once
	done chan struct{}
}

type NotifierOption func(*AsyncNotifier)

func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *AsyncNotifier) {
		n.logger = l
	}
}

func WithBuffer(size int) NotifierOption {
	return func(n *AsyncNotifier) {
		if size > 0 {
			n.queue = make(chan Notice, size)
		}
	}
}

func NewAsyncNotifier(sink NoticeSink, opts ...NotifierOption) *AsyncNotifier {
	n := &AsyncNotifier{
		sink:   sink,
		logger: slog.Default(),
		queue:  make(chan Notice, defaultBuffer),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// For returns a notifier that tags every notice with sessionID.
func (n *AsyncNotifier) For(sessionID string) ports.Notifier {
	return &scopedNotifier{parent: n, sessionID: sessionID}
}

func (n *AsyncNotifier) enqueue(notice Notice) {
	select {
	case n.queue <- notice:
	default:
		n.logger.Warn("notice dropped, buffer full",
			"session_id", notice.SessionID,
			"severity", notice.Severity,
		)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (n *AsyncNotifier) Run(ctx context.Context) error {
	defer n.once.Do(func() { close(n.done) })
	for {
		select {
		case <-ctx.Done():
			n.drain()
			return nil
		case notice := <-n.queue:
			n.publish(notice)
		}
	}
}

// Done is closed once Run has returned.
func (n *AsyncNotifier) Done() <-chan struct{} {
	return n.done
}

func (n *AsyncNotifier) drain() {
	for {
		select {
		case notice := <-n.queue:
			n.publish(notice)
		default:
			return
		}
	}
}

func (n *AsyncNotifier) publish(notice Notice) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.sink.PublishNotice(ctx, notice); err != nil {
		n.logger.Error("failed to publish notice",
			"session_id", notice.SessionID,
			"error", err,
		)
	}
}

type scopedNotifier struct {
	parent    *AsyncNotifier
	sessionID string
}

func (s *scopedNotifier) Announce(message string, severity domain.Severity) {
	s.parent.enqueue(Notice{
		SessionID: s.sessionID,
		Message:   message,
		Severity:  severity,
		At:        s.parent.now().UTC(),
	})
}

// LogSink writes notices to a structured logger. Used when no broker is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) PublishNotice(_ context.Context, n Notice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch n.Severity {
	case domain.SeverityWarning:
		level = slog.LevelWarn
	case domain.SeverityError:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, n.Message,
		"session_id", n.SessionID,
		"severity", n.Severity,
	)
	return nil
}

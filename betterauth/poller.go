package betterauth

import (
	"context"
	"sync"
	"time"

	"github.com/fartinmartin/convexauth"
	"github.com/fartinmartin/convexauth/logger"
)

const DefaultPollInterval = time.Minute

// A SessionGetter fetches the current session, e.g. [*Client].
type SessionGetter interface {
	GetSession(ctx context.Context, bearer string) (*convexauth.SessionData, error)
}

// A SessionPoller polls a SessionGetter and publishes sessions to its subscribers when they change.
//
// Until the first poll answers, subscribers see a pending Session.
type SessionPoller struct {
	getter   SessionGetter
	interval time.Duration
	timeout  time.Duration
	l        logger.Logger

	refresh chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// deliver serializes notifications so every listener sees sessions in the order they were polled.
	deliver sync.Mutex

	mu        sync.Mutex
	current   convexauth.Session
	nextID    uint64
	listeners map[uint64]func(convexauth.Session)
}

// A PollerOpt configures a SessionPoller when constructing a new one.
type PollerOpt func(*SessionPoller)

// WithInterval sets the time between polls.
func WithInterval(d time.Duration) PollerOpt {
	return func(p *SessionPoller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithPollTimeout bounds each poll.
func WithPollTimeout(d time.Duration) PollerOpt {
	return func(p *SessionPoller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollerLogger sets the logger.Logger failed polls are reported to.
func WithPollerLogger(l logger.Logger) PollerOpt {
	return func(p *SessionPoller) {
		if l != nil {
			p.l = l
		}
	}
}

// NewSessionPoller constructs a SessionPoller and starts polling g right away.
// Call Close to stop.
func NewSessionPoller(g SessionGetter, opts ...PollerOpt) *SessionPoller {
	p := &SessionPoller{
		getter:    g,
		interval:  DefaultPollInterval,
		timeout:   DefaultTimeout,
		l:         logger.NewDiscard(),
		refresh:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		current:   convexauth.Session{IsPending: true},
		listeners: make(map[uint64]func(convexauth.Session)),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.run()

	return p
}

// Subscribe calls fn with the current Session, then again each time it changes.
func (p *SessionPoller) Subscribe(fn func(convexauth.Session)) (unsubscribe func()) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	cur := p.current
	p.mu.Unlock()

	fn(cur)

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Session returns the last Session polled.
func (p *SessionPoller) Session() convexauth.Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// Refresh polls now instead of waiting for the next interval.
func (p *SessionPoller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Close stops polling and waits for an in-flight poll to finish.
func (p *SessionPoller) Close() {
	p.once.Do(func() { close(p.done) })
	<-p.stopped
}

func (p *SessionPoller) run() {
	defer close(p.stopped)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-p.done
		cancel()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)

		select {
		case <-p.done:
			return
		case <-ticker.C:
		case <-p.refresh:
			ticker.Reset(p.interval)
		}
	}
}

func (p *SessionPoller) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.getter.GetSession(ctx, "")
	if err != nil {
		if ctx.Err() == nil {
			p.l.Warn("polling session failed", &logger.LogContext{Error: err})
		}

		return
	}

	p.publish(convexauth.Session{Data: data})
}

// publish replaces the current Session and notifies listeners, if s differs from it.
func (p *SessionPoller) publish(s convexauth.Session) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	if !p.current.IsPending && sameSession(p.current.Data, s.Data) {
		p.mu.Unlock()
		return
	}

	p.current = s
	fns := make([]func(convexauth.Session), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func sameSession(a, b *convexauth.SessionData) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Session.ID == b.Session.ID &&
		a.Session.Token == b.Session.Token &&
		a.Session.ExpiresAt.Equal(b.Session.ExpiresAt) &&
		a.User.ID == b.User.ID &&
		a.User.UpdatedAt.Equal(b.User.UpdatedAt)
}

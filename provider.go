package frummy

import (
	"context"
	"sync"

	"github.com/goliatone/go-router"
)

// ChangeListener receives the provider's (session, state) pair whenever the
// cached session changes.
type ChangeListener func(session *Session, state State)

// Provider is the single source of truth for the current authenticated
// identity. It owns the session cache exclusively: the only writers are its
// own identity listener and the initial fetch in Start.
type Provider struct {
	identity IdentityService
	logger   Logger

	mu          sync.RWMutex
	session     *Session
	state       State
	generation  int
	nextID      int
	listeners   map[int]ChangeListener
	unsubscribe func()
	started     bool
	closed      bool
}

var _ SessionResolver = (*Provider)(nil)

// NewProvider returns a provider bound to the given identity service. Call
// Start to resolve the initial session and Close to tear down.
func NewProvider(identity IdentityService) *Provider {
	return &Provider{
		identity:  identity,
		logger:    defLogger{},
		state:     StateUnknown,
		listeners: map[int]ChangeListener{},
	}
}

func (p *Provider) WithLogger(logger Logger) *Provider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Start registers the identity change listener and requests the current
// session exactly once. While the request is outstanding the state stays
// StateUnknown. A failed request resolves to signed-out rather than leaving
// the provider indeterminate.
func (p *Provider) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	// pushes cannot land before the listener below exists, so any write
	// after this generation read comes from a push that must win
	gen := p.generation
	p.mu.Unlock()

	unsubscribe := p.identity.OnAuthChange(func(event AuthEvent, session *Session) {
		p.logger.Debug("auth change push", "event", string(event))
		p.resolve(session)
	})

	p.mu.Lock()
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	session, err := p.identity.CurrentSession(ctx)
	if err != nil {
		p.logger.Warn("initial session fetch failed, resolving signed out", "error", err)
		p.apply(nil, gen)
		return
	}

	p.apply(session, gen)
}

// Current returns the cached session (nil when signed out) and the loading
// state.
func (p *Provider) Current() (*Session, State) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session, p.state
}

// Resolve satisfies SessionResolver so the provider can feed a Guard
// directly.
func (p *Provider) Resolve(router.Context) (*Session, State) {
	return p.Current()
}

// OnChange registers a listener for session changes and returns its
// deregistration func. Listeners added after resolution are not replayed the
// current value; read Current first if you need it.
func (p *Provider) OnChange(fn ChangeListener) func() {
	if fn == nil {
		return func() {}
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// SignOut asks the identity service to terminate the current session. The
// cache is cleared by the resulting change push, not here; callers handle
// navigation themselves.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.RLock()
	closed := p.closed
	session := p.session
	p.mu.RUnlock()

	if closed {
		return ErrProviderClosed
	}
	if session == nil {
		return nil
	}

	if err := p.identity.SignOut(ctx, session.AccessToken); err != nil {
		p.logger.Error("sign out request failed", "error", err)
		return err
	}

	return nil
}

// Close deregisters the identity listener and drops all subscribers. The
// provider cannot be restarted.
func (p *Provider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	unsubscribe := p.unsubscribe
	p.unsubscribe = nil
	p.listeners = map[int]ChangeListener{}
	p.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// resolve applies a change push. Every write bumps the generation so the
// initial fetch in Start can tell whether a push already overtook it.
func (p *Provider) resolve(session *Session) {
	p.apply(session, -1)
}

// apply is the single write path for the session cache. A non-negative
// ifGeneration makes the write conditional: it is dropped when another write
// landed since that generation was read. Listeners are invoked outside the
// lock so they may call back into the provider.
func (p *Provider) apply(session *Session, ifGeneration int) {
	p.mu.Lock()
	if p.closed || (ifGeneration >= 0 && p.generation != ifGeneration) {
		p.mu.Unlock()
		return
	}
	p.generation++
	p.session = session
	p.state = StateResolved

	notify := make([]ChangeListener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		notify = append(notify, fn)
	}
	p.mu.Unlock()

	for _, fn := range notify {
		fn(session, StateResolved)
	}
}

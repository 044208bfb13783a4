package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/use-agent/cfmarkdown/models"
)

var (
	// ErrBusy is returned by Submit while a request is already in flight.
	ErrBusy = errors.New("a scrape is already in progress")

	// ErrNothingToCopy is returned by Copy unless the session holds extracted content.
	ErrNothingToCopy = errors.New("no extracted content to copy")
)

// CredentialStore is the subset of *credentials.Store a Session needs.
type CredentialStore interface {
	Load(ctx context.Context) (models.StoredCredentials, bool, error)
	Save(ctx context.Context, creds models.StoredCredentials) error
}

// Session drives one user's request lifecycle:
//
//	Idle ──submit──▶ Loading ──▶ Succeeded(content) | Failed(message)
//	Succeeded | Failed ──submit──▶ Loading
//
// Invalid submissions leave the state untouched. At most one request is in
// flight; a submit during Loading is rejected with ErrBusy, so a response
// always settles the submission that started it. Each accepted submission
// bumps the generation, which tags the Loading state and its outcome.
type Session struct {
	scraper   Scraper
	store     CredentialStore
	clipboard Clipboard
	observers []func(State)

	mu    sync.Mutex
	state State
}

// Option customises a Session.
type Option func(*Session)

// WithClipboard sets the copy target. Defaults to SystemClipboard.
func WithClipboard(cb Clipboard) Option {
	return func(s *Session) { s.clipboard = cb }
}

// WithObserver registers fn to receive every state transition.
// fn runs synchronously and must not call back into the Session.
func WithObserver(fn func(State)) Option {
	return func(s *Session) { s.observers = append(s.observers, fn) }
}

// NewSession creates a Session in the Idle state.
func NewSession(scraper Scraper, store CredentialStore, opts ...Option) *Session {
	s := &Session{
		scraper:   scraper,
		store:     store,
		clipboard: SystemClipboard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore reads the remembered credentials. Called once at startup.
func (s *Session) Restore(ctx context.Context) (models.StoredCredentials, error) {
	creds, _, err := s.store.Load(ctx)
	return creds, err
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Submit validates req, enters Loading, remembers the credentials, awaits the
// scraper and settles in Succeeded or Failed. It returns the state reached by
// this submission.
//
// Validation failures and ErrBusy return the unchanged state plus the error.
// Scrape failures are not returned as errors; they are the Failed state.
func (s *Session) Submit(ctx context.Context, req models.ScrapeRequest) (State, error) {
	if err := req.Validate(); err != nil {
		var scrapeErr *models.ScrapeError
		if errors.As(err, &scrapeErr) && scrapeErr.Message == models.MsgMissingFields {
			err = models.NewScrapeError(models.KindValidation, MsgFillAllFields, err)
		}
		return s.State(), err
	}
	req.Normalize()

	s.mu.Lock()
	if s.state.Phase == Loading {
		st := s.state
		s.mu.Unlock()
		return st, ErrBusy
	}
	gen := s.state.Generation + 1
	loading := State{Phase: Loading, Generation: gen}
	s.state = loading
	s.mu.Unlock()
	s.notify(loading)

	// Saved before the call so a retry after failure keeps the typed values.
	if err := s.store.Save(ctx, req.Credentials()); err != nil {
		slog.Warn("session: failed to remember credentials", "error", err)
	}

	content, err := s.scraper.Scrape(ctx, &req)

	next := State{Phase: Succeeded, Content: content, Generation: gen}
	if err != nil {
		next = State{Phase: Failed, Message: failureMessage(err), Generation: gen}
	}

	// Single flight keeps gen current until this submission settles.
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.notify(next)
	return next, nil
}

// Copy writes the extracted content to the clipboard. It never changes state.
func (s *Session) Copy() error {
	st := s.State()
	if st.Phase != Succeeded || st.Content == "" {
		return ErrNothingToCopy
	}
	return s.clipboard.WriteAll(st.Content)
}

func (s *Session) notify(st State) {
	for _, fn := range s.observers {
		fn(st)
	}
}

func failureMessage(err error) string {
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) && scrapeErr.Message != "" {
		return scrapeErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgTransportFailure
}

package ledger

import (
	"sync"
	"time"

	"github.com/dvloznov/finance-ledger/internal/categories"
	"github.com/rs/zerolog"
)

// DefaultRecentLimit is the number of transactions in a summary's
// recent-activity feed when none is requested.
const DefaultRecentLimit = 10

// Ledger holds the shared collaborators of the transaction ledger. Use
// ForUser to obtain a Service scoped to one user's data.
type Ledger struct {
	transactions TransactionStore
	budgets      BudgetStore
	registry     *categories.Registry
	events       EventPublisher
	log          zerolog.Logger
	recentLimit  int
	clock        *clock
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher sets the publisher notified after every committed mutation.
func WithPublisher(p EventPublisher) Option {
	return func(l *Ledger) { l.events = p }
}

// WithLogger sets the ledger's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.clock.now = now }
}

// WithRecentLimit sets the default size of the recent-activity feed.
func WithRecentLimit(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.recentLimit = n
		}
	}
}

// New creates a Ledger. budgets may be nil when budget tracking is not needed.
func New(transactions TransactionStore, budgets BudgetStore, registry *categories.Registry, opts ...Option) *Ledger {
	l := &Ledger{
		transactions: transactions,
		budgets:      budgets,
		registry:     registry,
		log:          zerolog.Nop(),
		recentLimit:  DefaultRecentLimit,
		clock:        &clock{now: time.Now},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the category registry the ledger validates against.
func (l *Ledger) Registry() *categories.Registry { return l.registry }

// ForUser returns a Service operating on userID's data only.
func (l *Ledger) ForUser(userID string) *Service {
	return &Service{
		Ledger: l,
		userID: userID,
		log:    l.log.With().Str("user_id", userID).Logger(),
	}
}

// clock hands out strictly increasing UTC timestamps at microsecond
// precision so creation order survives a round trip through any store.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

func (c *clock) current() time.Time {
	return c.now()
}

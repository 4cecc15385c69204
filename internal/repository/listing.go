package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/WildanFrananda/ProMentor-app/internal/models"
)

// sessionLister is implemented by SessionRepo.
type sessionLister interface {
	List(ctx context.Context, p ListSessionsParams) (models.Paginated[models.SessionSummary], error)
}

// Listing accumulates pages of session summaries the way a list screen
// consumes them: Load fetches page one, LoadMore appends the next page,
// and every filter change resets the accumulated state. Pages advance
// monotonically within one listing session and reset to 1 on every filter
// change or explicit refresh.
type Listing struct {
	repo  sessionLister
	limit int

	mu         sync.Mutex
	query      string
	categoryID string
	coachID    *uuid.UUID
	page       int
	totalPages int
	loaded     bool
	items      []models.SessionSummary
}

func NewListing(repo sessionLister, limit int) *Listing {
	if limit <= 0 {
		limit = 10
	}
	return &Listing{repo: repo, limit: limit}
}

// Items returns the accumulated summaries.
func (l *Listing) Items() []models.SessionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.SessionSummary(nil), l.items...)
}

// CanLoadMore reports whether another page exists.
func (l *Listing) CanLoadMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.loaded || l.page < l.totalPages
}

// SetQuery changes the free-text filter and resets the listing. The
// accumulated items are empty until the next Load.
func (l *Listing) SetQuery(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.query == query {
		return
	}
	l.query = query
	l.reset()
}

// SetCategory changes the category filter and resets the listing.
func (l *Listing) SetCategory(categoryID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.categoryID == categoryID {
		return
	}
	l.categoryID = categoryID
	l.reset()
}

// SetCoach scopes the listing to one coach's sessions and resets it.
func (l *Listing) SetCoach(coachID *uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coachID = coachID
	l.reset()
}

// Load resets the listing and fetches page one.
func (l *Listing) Load(ctx context.Context) error {
	l.mu.Lock()
	l.reset()
	l.mu.Unlock()
	return l.fetch(ctx, 1)
}

// Refresh discards the accumulated items and re-fetches page one with the
// current filters (the pull-to-refresh operation).
func (l *Listing) Refresh(ctx context.Context) error {
	return l.Load(ctx)
}

// LoadMore fetches the next page and appends it. A call with no further
// pages is a no-op.
func (l *Listing) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.loaded && l.page >= l.totalPages {
		l.mu.Unlock()
		return nil
	}
	next := l.page + 1
	l.mu.Unlock()

	return l.fetch(ctx, next)
}

func (l *Listing) fetch(ctx context.Context, page int) error {
	l.mu.Lock()
	p := ListSessionsParams{
		Page:       page,
		Limit:      l.limit,
		Query:      l.query,
		CategoryID: l.categoryID,
		CoachID:    l.coachID,
	}
	l.mu.Unlock()

	result, err := l.repo.List(ctx, p)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if page == 1 {
		l.items = result.Data
	} else {
		l.items = append(l.items, result.Data...)
	}
	l.page = page
	l.totalPages = result.Meta.TotalPages
	l.loaded = true
	return nil
}

// reset must be called with the mutex held.
func (l *Listing) reset() {
	l.page = 0
	l.totalPages = 0
	l.loaded = false
	l.items = nil
}

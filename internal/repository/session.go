package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
)

// SessionRepo serves the coaching-session endpoints.
type SessionRepo struct {
	api    Transport
	auth   TokenRefresher
	logger logger.Logger
}

func NewSessionRepo(api Transport, auth TokenRefresher, log logger.Logger) *SessionRepo {
	return &SessionRepo{
		api:    api,
		auth:   auth,
		logger: log.With("component", "session-repo"),
	}
}

// ListSessionsParams filters a session listing. Pagination is 1-indexed.
type ListSessionsParams struct {
	Page  int
	Limit int

	// Query is a free-text search; empty means no filter.
	Query string

	// CategoryID scopes to one category; empty means all.
	CategoryID string

	// CoachID scopes to sessions created by one coach (used for the
	// "my sessions" view); nil means all coaches.
	CoachID *uuid.UUID
}

// List fetches one page of sessions.
func (r *SessionRepo) List(ctx context.Context, p ListSessionsParams) (models.Paginated[models.SessionSummary], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Query != "" {
		q.Set("query", p.Query)
	}
	if p.CategoryID != "" {
		q.Set("category_id", p.CategoryID)
	}
	if p.CoachID != nil {
		q.Set("coach_id", p.CoachID.String())
	}

	r.logger.Info("fetching sessions", "page", p.Page, "category", p.CategoryID)

	return withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.Paginated[models.SessionSummary], error) {
		var page models.Paginated[models.SessionSummary]
		err := r.api.Get(ctx, "/v1/sessions?"+q.Encode(), true, &page)
		return page, err
	})
}

// Categories fetches the category catalogue. Public endpoint, no retry.
func (r *SessionRepo) Categories(ctx context.Context) ([]models.SessionCategory, error) {
	var cats []models.SessionCategory
	if err := r.api.Get(ctx, "/v1/categories", false, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Detail fetches one session.
func (r *SessionRepo) Detail(ctx context.Context, id uuid.UUID) (models.SessionDetail, error) {
	r.logger.Info("fetching session detail", "session_id", id)

	return withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.SessionDetail, error) {
		var detail models.SessionDetail
		err := r.api.Get(ctx, fmt.Sprintf("/v1/session-details/%s", id), true, &detail)
		return detail, err
	})
}

// Join enrolls the current account into a session.
func (r *SessionRepo) Join(ctx context.Context, id uuid.UUID) error {
	r.logger.Info("joining session", "session_id", id)

	return withAuthRetryNoResult(ctx, r.auth, func(ctx context.Context) error {
		return r.api.Post(ctx, fmt.Sprintf("/v1/sessions/%s/join", id), nil, true, nil)
	})
}

// History lists the sessions the current account has attended or joined.
func (r *SessionRepo) History(ctx context.Context) ([]models.SessionSummary, error) {
	sessions, err := withAuthRetry(ctx, r.auth, func(ctx context.Context) ([]models.SessionSummary, error) {
		var out []models.SessionSummary
		err := r.api.Get(ctx, "/v1/sessions/history", true, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.SessionSummary{}
	}
	return sessions, nil
}

// Rate submits a rating for an attended session. The rate endpoint signals
// its business failures by status code alone, so 409 and 403 are mapped to
// sentinel errors here.
func (r *SessionRepo) Rate(ctx context.Context, id uuid.UUID, req models.RateSessionRequest) error {
	if err := models.Validate(req); err != nil {
		return err
	}

	r.logger.Info("rating session", "session_id", id, "rating", req.Rating)

	err := withAuthRetryNoResult(ctx, r.auth, func(ctx context.Context) error {
		return r.api.Post(ctx, fmt.Sprintf("/v1/sessions/%s/rate", id), req, true, nil)
	})

	switch apperrors.StatusCode(err) {
	case http.StatusConflict:
		return fmt.Errorf("%w: %w", apperrors.ErrAlreadyRated, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", apperrors.ErrNotEnrolled, err)
	}
	return err
}

// Create publishes a new session (coach accounts only; the backend enforces
// the role).
func (r *SessionRepo) Create(ctx context.Context, req models.CreateSessionRequest) (models.SessionSummary, error) {
	if err := models.Validate(req); err != nil {
		return models.SessionSummary{}, err
	}

	return withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.SessionSummary, error) {
		var created models.SessionSummary
		err := r.api.Post(ctx, "/v1/sessions", req, true, &created)
		return created, err
	})
}

// UserStatus derives the current account's relation to a session. The
// backend has no membership endpoint, so "joined" is inferred by scanning
// the account's session history; with a richer contract this becomes a
// single direct lookup.
func (r *SessionRepo) UserStatus(ctx context.Context, detail models.SessionDetail, user models.User) (models.SessionUserStatus, error) {
	if detail.EndAt != nil && time.Now().After(*detail.EndAt) {
		return models.SessionStatusEnded, nil
	}
	if user.ID == detail.Coach.ID {
		return models.SessionStatusOwner, nil
	}

	history, err := r.History(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range history {
		if s.ID == detail.ID {
			return models.SessionStatusJoined, nil
		}
	}
	return models.SessionStatusOpen, nil
}

package repository

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
	"github.com/WildanFrananda/ProMentor-app/internal/secstore"
	"github.com/WildanFrananda/ProMentor-app/internal/testutil"
	"github.com/WildanFrananda/ProMentor-app/internal/transport"
)

// newSessionRepo wires a SessionRepo to a fake backend through the real
// transport. The refresher swaps the stored access token from "stale" to
// "fresh" so tests can exercise the retry contract end to end.
func newSessionRepo(t *testing.T, backend *testutil.FakeBackend) (*SessionRepo, *secstore.MemStore, *stubRefresher) {
	t.Helper()

	store := secstore.NewMemStore()
	require.NoError(t, store.Save(secstore.KeyAccessToken, "stale"))

	api, err := transport.New(backend.URL(), store, logger.NewNoOp())
	require.NoError(t, err)

	refresher := &stubRefresher{onRefresh: func() {
		_ = store.Save(secstore.KeyAccessToken, "fresh")
	}}

	return NewSessionRepo(api, refresher, logger.NewNoOp()), store, refresher
}

func sessionsPage(ids ...uuid.UUID) models.Paginated[models.SessionSummary] {
	page := models.Paginated[models.SessionSummary]{
		Meta: models.PaginationMeta{CurrentPage: 1, TotalPages: 1, TotalItems: len(ids), PerPage: 10},
	}
	for _, id := range ids {
		page.Data = append(page.Data, models.SessionSummary{
			ID:      id,
			Title:   "Go for mentors",
			StartAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		})
	}
	return page
}

func TestSessionRepo_List(t *testing.T) {
	t.Run("sends filters as query params", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, _ := newSessionRepo(t, backend)

		coachID := uuid.New()
		id := uuid.New()
		backend.Handle(http.MethodGet, "/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			require.Equal(t, "2", q.Get("page"))
			require.Equal(t, "10", q.Get("limit"))
			require.Equal(t, "golang", q.Get("query"))
			require.Equal(t, "tech", q.Get("category_id"))
			require.Equal(t, coachID.String(), q.Get("coach_id"))
			require.Equal(t, "stale", testutil.BearerToken(r))

			testutil.JSONResponse(w, http.StatusOK, sessionsPage(id))
		})

		page, err := repo.List(context.Background(), ListSessionsParams{
			Page:       2,
			Limit:      10,
			Query:      "golang",
			CategoryID: "tech",
			CoachID:    &coachID,
		})

		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		require.Equal(t, id, page.Data[0].ID)
		require.Equal(t, 1, page.Meta.TotalPages)
	})

	t.Run("retries exactly once after a refresh", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, refresher := newSessionRepo(t, backend)

		backend.Handle(http.MethodGet, "/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
			if testutil.BearerToken(r) != "fresh" {
				testutil.JSONResponse(w, http.StatusUnauthorized, apperrors.ServerErrorResponse{Error: "token expired"})
				return
			}
			testutil.JSONResponse(w, http.StatusOK, sessionsPage(uuid.New()))
		})

		page, err := repo.List(context.Background(), ListSessionsParams{Page: 1, Limit: 10})

		require.NoError(t, err)
		require.Len(t, page.Data, 1)
		require.Equal(t, 2, backend.Calls(http.MethodGet, "/v1/sessions"))
		require.Equal(t, 1, refresher.calls)
	})

	t.Run("surfaces session expiry instead of the 401", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, refresher := newSessionRepo(t, backend)
		refresher.onRefresh = nil
		refresher.err = apperrors.ErrSessionExpired

		backend.Handle(http.MethodGet, "/v1/sessions",
			testutil.JSONHandler(http.StatusUnauthorized, apperrors.ServerErrorResponse{Error: "token expired"}))

		_, err := repo.List(context.Background(), ListSessionsParams{Page: 1, Limit: 10})

		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
		require.False(t, apperrors.IsUnauthorized(err))
		require.Equal(t, 1, backend.Calls(http.MethodGet, "/v1/sessions"))
	})
}

func TestSessionRepo_Categories(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, store, _ := newSessionRepo(t, backend)
	require.NoError(t, store.DeleteAll()) // public endpoint works logged out

	backend.Handle(http.MethodGet, "/v1/categories", func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, testutil.BearerToken(r))
		testutil.JSONResponse(w, http.StatusOK, []models.SessionCategory{{ID: "tech", Name: "Tech", Icon: "laptop"}})
	})

	cats, err := repo.Categories(context.Background())

	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Equal(t, "Tech", cats[0].Name)
}

func TestSessionRepo_Join(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, _, _ := newSessionRepo(t, backend)

	id := uuid.New()
	backend.Handle(http.MethodPost, "/v1/sessions/"+id.String()+"/join",
		testutil.JSONHandler(http.StatusOK, map[string]string{"message": "joined"}))

	require.NoError(t, repo.Join(context.Background(), id))
	require.Equal(t, 1, backend.Calls(http.MethodPost, "/v1/sessions/"+id.String()+"/join"))
}

func TestSessionRepo_History(t *testing.T) {
	t.Run("null body decodes to an empty slice", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, _ := newSessionRepo(t, backend)

		backend.Handle(http.MethodGet, "/v1/sessions/history", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("null"))
		})

		history, err := repo.History(context.Background())

		require.NoError(t, err)
		require.NotNil(t, history)
		require.Empty(t, history)
	})
}

func TestSessionRepo_Rate(t *testing.T) {
	t.Run("rejects an out-of-range rating before any request", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, _ := newSessionRepo(t, backend)

		id := uuid.New()
		err := repo.Rate(context.Background(), id, models.RateSessionRequest{Rating: 6})

		require.Error(t, err)
		require.Equal(t, 0, backend.Calls(http.MethodPost, "/v1/sessions/"+id.String()+"/rate"))
	})

	t.Run("a bare 409 means already rated", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, _ := newSessionRepo(t, backend)

		id := uuid.New()
		// the rate endpoint answers by status code alone, no error body
		backend.Handle(http.MethodPost, "/v1/sessions/"+id.String()+"/rate",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusConflict)
			})

		err := repo.Rate(context.Background(), id, models.RateSessionRequest{Rating: 5, Comment: "great"})

		require.ErrorIs(t, err, apperrors.ErrAlreadyRated)
		require.Equal(t, http.StatusConflict, apperrors.StatusCode(err))
		require.Equal(t, "You have already rated this session", apperrors.UserMessage(err))
	})

	t.Run("a bare 403 means not enrolled", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _, _ := newSessionRepo(t, backend)

		id := uuid.New()
		backend.Handle(http.MethodPost, "/v1/sessions/"+id.String()+"/rate",
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			})

		err := repo.Rate(context.Background(), id, models.RateSessionRequest{Rating: 4})

		require.ErrorIs(t, err, apperrors.ErrNotEnrolled)
		require.Equal(t, http.StatusForbidden, apperrors.StatusCode(err))
		require.Equal(t, "You are not enrolled in this session", apperrors.UserMessage(err))
	})
}

func TestSessionRepo_Create(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, _, _ := newSessionRepo(t, backend)

	t.Run("validates before sending", func(t *testing.T) {
		_, err := repo.Create(context.Background(), models.CreateSessionRequest{Capacity: 5})

		require.Error(t, err)
		require.Equal(t, 0, backend.Calls(http.MethodPost, "/v1/sessions"))
	})

	t.Run("returns the created session", func(t *testing.T) {
		created := models.SessionSummary{ID: uuid.New(), Title: "Concurrency patterns"}
		backend.Handle(http.MethodPost, "/v1/sessions", testutil.JSONHandler(http.StatusCreated, created))

		got, err := repo.Create(context.Background(), models.CreateSessionRequest{
			Title:    "Concurrency patterns",
			StartAt:  time.Now().Add(24 * time.Hour),
			Capacity: 20,
		})

		require.NoError(t, err)
		require.Equal(t, created.ID, got.ID)
	})
}

func TestSessionRepo_UserStatus(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, _, _ := newSessionRepo(t, backend)

	coach := models.CoachInfo{ID: uuid.New(), Name: "Ann"}
	sessionID := uuid.New()
	detail := models.SessionDetail{
		ID:      sessionID,
		Title:   "Go for mentors",
		StartAt: time.Now().Add(time.Hour),
		Coach:   coach,
	}

	backend.Handle(http.MethodGet, "/v1/sessions/history",
		testutil.JSONHandler(http.StatusOK, []models.SessionSummary{{ID: sessionID}}))

	t.Run("ended sessions win over everything else", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		ended := detail
		ended.EndAt = &past

		status, err := repo.UserStatus(context.Background(), ended, models.User{ID: coach.ID})

		require.NoError(t, err)
		require.Equal(t, models.SessionStatusEnded, status)
	})

	t.Run("the coach owns their session", func(t *testing.T) {
		status, err := repo.UserStatus(context.Background(), detail, models.User{ID: coach.ID})

		require.NoError(t, err)
		require.Equal(t, models.SessionStatusOwner, status)
	})

	t.Run("a session in the history means joined", func(t *testing.T) {
		status, err := repo.UserStatus(context.Background(), detail, models.User{ID: uuid.New()})

		require.NoError(t, err)
		require.Equal(t, models.SessionStatusJoined, status)
	})

	t.Run("otherwise the session is open", func(t *testing.T) {
		other := detail
		other.ID = uuid.New()

		status, err := repo.UserStatus(context.Background(), other, models.User{ID: uuid.New()})

		require.NoError(t, err)
		require.Equal(t, models.SessionStatusOpen, status)
	})
}

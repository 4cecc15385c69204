package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
	"github.com/WildanFrananda/ProMentor-app/internal/secstore"
	"github.com/WildanFrananda/ProMentor-app/internal/testutil"
	"github.com/WildanFrananda/ProMentor-app/internal/transport"
)

func newUserRepo(t *testing.T, backend *testutil.FakeBackend) (*UserRepo, *stubRefresher) {
	t.Helper()

	store := secstore.NewMemStore()
	require.NoError(t, store.Save(secstore.KeyAccessToken, "stale"))

	api, err := transport.New(backend.URL(), store, logger.NewNoOp())
	require.NoError(t, err)

	refresher := &stubRefresher{onRefresh: func() {
		_ = store.Save(secstore.KeyAccessToken, "fresh")
	}}

	return NewUserRepo(api, refresher, logger.NewNoOp()), refresher
}

func TestUserRepo_CurrentUser(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, refresher := newUserRepo(t, backend)

	me := models.User{ID: uuid.New(), Email: "ann@example.com", Name: "Ann", Role: models.RoleCoach}
	backend.Handle(http.MethodGet, "/v1/profile/me", func(w http.ResponseWriter, r *http.Request) {
		if testutil.BearerToken(r) != "fresh" {
			testutil.JSONResponse(w, http.StatusUnauthorized, apperrors.ServerErrorResponse{Error: "token expired"})
			return
		}
		testutil.JSONResponse(w, http.StatusOK, me)
	})

	got, err := repo.CurrentUser(context.Background())

	require.NoError(t, err)
	require.Equal(t, me.ID, got.ID)
	require.True(t, got.IsCoach())
	require.Equal(t, 2, backend.Calls(http.MethodGet, "/v1/profile/me"))
	require.Equal(t, 1, refresher.calls)
}

func TestUserRepo_UpdateProfile(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	repo, _ := newUserRepo(t, backend)

	name := "Ann B."
	backend.Handle(http.MethodPut, "/v1/profile/me", func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateProfileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Name)
		require.Equal(t, name, *req.Name)
		require.Nil(t, req.AvatarURL)

		testutil.JSONResponse(w, http.StatusOK, models.User{ID: uuid.New(), Name: name})
	})

	got, err := repo.UpdateProfile(context.Background(), models.UpdateProfileRequest{Name: &name})

	require.NoError(t, err)
	require.Equal(t, name, got.Name)
}

func TestUserRepo_UpdateAvatar(t *testing.T) {
	image := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}

	t.Run("runs all three steps in order", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _ := newUserRepo(t, backend)

		const finalURL = "https://cdn.example.com/avatars/ann.jpg"
		backend.Handle(http.MethodPost, "/v1/profile/avatar/upload-url", func(w http.ResponseWriter, r *http.Request) {
			testutil.JSONResponse(w, http.StatusOK, models.AvatarUploadURLResponse{
				UploadURL:     backend.URL() + "/storage/avatars/ann.jpg",
				FinalImageURL: finalURL,
			})
		})
		backend.Handle(http.MethodPut, "/storage/avatars/ann.jpg", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.Equal(t, image, body)
			// pre-signed uploads carry no bearer
			require.Empty(t, testutil.BearerToken(r))
			w.WriteHeader(http.StatusOK)
		})
		backend.Handle(http.MethodPut, "/v1/profile/me", func(w http.ResponseWriter, r *http.Request) {
			var req models.UpdateProfileRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.AvatarURL)
			require.Equal(t, finalURL, *req.AvatarURL)

			testutil.JSONResponse(w, http.StatusOK, models.User{ID: uuid.New(), AvatarURL: finalURL})
		})

		got, err := repo.UpdateAvatar(context.Background(), image)

		require.NoError(t, err)
		require.Equal(t, finalURL, got.AvatarURL)
		require.Equal(t, 1, backend.Calls(http.MethodPost, "/v1/profile/avatar/upload-url"))
		require.Equal(t, 1, backend.Calls(http.MethodPut, "/storage/avatars/ann.jpg"))
		require.Equal(t, 1, backend.Calls(http.MethodPut, "/v1/profile/me"))
	})

	t.Run("a failed byte upload never touches the profile", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _ := newUserRepo(t, backend)

		backend.Handle(http.MethodPost, "/v1/profile/avatar/upload-url",
			testutil.JSONHandler(http.StatusOK, models.AvatarUploadURLResponse{
				UploadURL:     backend.URL() + "/storage/avatars/ann.jpg",
				FinalImageURL: "https://cdn.example.com/avatars/ann.jpg",
			}))
		backend.Handle(http.MethodPut, "/storage/avatars/ann.jpg",
			testutil.JSONHandler(http.StatusInternalServerError, apperrors.ServerErrorResponse{Error: "storage down"}))

		_, err := repo.UpdateAvatar(context.Background(), image)

		require.Error(t, err)
		require.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
		require.Equal(t, 0, backend.Calls(http.MethodPut, "/v1/profile/me"))
	})

	t.Run("a failed upload-url request aborts immediately", func(t *testing.T) {
		backend := testutil.NewFakeBackend(t)
		repo, _ := newUserRepo(t, backend)

		backend.Handle(http.MethodPost, "/v1/profile/avatar/upload-url",
			testutil.JSONHandler(http.StatusForbidden, apperrors.ServerErrorResponse{Error: "forbidden"}))

		_, err := repo.UpdateAvatar(context.Background(), image)

		require.Error(t, err)
		require.Equal(t, http.StatusForbidden, apperrors.StatusCode(err))
		require.Equal(t, 0, backend.Calls(http.MethodPut, "/storage/avatars/ann.jpg"))
		require.Equal(t, 0, backend.Calls(http.MethodPut, "/v1/profile/me"))
	})
}

package repository

import (
	"context"

	"github.com/WildanFrananda/ProMentor-app/internal/logger"
	"github.com/WildanFrananda/ProMentor-app/internal/models"
)

// UserRepo serves the profile endpoints.
type UserRepo struct {
	api    Transport
	auth   TokenRefresher
	logger logger.Logger
}

func NewUserRepo(api Transport, auth TokenRefresher, log logger.Logger) *UserRepo {
	return &UserRepo{
		api:    api,
		auth:   auth,
		logger: log.With("component", "user-repo"),
	}
}

// CurrentUser fetches the authenticated account's profile.
func (r *UserRepo) CurrentUser(ctx context.Context) (models.User, error) {
	return withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.User, error) {
		var user models.User
		err := r.api.Get(ctx, "/v1/profile/me", true, &user)
		return user, err
	})
}

// UpdateProfile patches the profile fields that are non-nil.
func (r *UserRepo) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (models.User, error) {
	r.logger.Info("updating profile")

	return withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.User, error) {
		var user models.User
		err := r.api.Put(ctx, "/v1/profile/me", req, true, &user)
		return user, err
	})
}

// UpdateAvatar runs the three-step avatar choreography: request an upload
// target, PUT the raw image bytes to it, then persist the final asset URL
// on the profile. A failure at any step aborts the whole operation and
// surfaces that step's error; a half-uploaded asset is orphaned server-side
// and never referenced by the profile.
func (r *UserRepo) UpdateAvatar(ctx context.Context, image []byte) (models.User, error) {
	r.logger.Info("starting avatar upload", "size", len(image))

	target, err := withAuthRetry(ctx, r.auth, func(ctx context.Context) (models.AvatarUploadURLResponse, error) {
		var out models.AvatarUploadURLResponse
		err := r.api.Post(ctx, "/v1/profile/avatar/upload-url", nil, true, &out)
		return out, err
	})
	if err != nil {
		r.logger.Error("avatar upload target request failed", "err", err)
		return models.User{}, err
	}

	if err := r.api.PutRaw(ctx, target.UploadURL, image); err != nil {
		r.logger.Error("avatar byte upload failed", "err", err)
		return models.User{}, err
	}

	user, err := r.UpdateProfile(ctx, models.UpdateProfileRequest{AvatarURL: &target.FinalImageURL})
	if err != nil {
		r.logger.Error("avatar profile save failed", "err", err)
		return models.User{}, err
	}

	r.logger.Info("avatar upload successful")
	return user, nil
}

// Package repository exposes the authenticated domain operations (sessions,
// profile) on top of the typed transport, applying the refresh-and-retry
// contract uniformly.
package repository

import (
	"context"

	"github.com/WildanFrananda/ProMentor-app/internal/apperrors"
)

// TokenRefresher is the slice of the auth manager the repositories need.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) error
}

// Transport is the slice of the HTTP client the repositories need.
type Transport interface {
	Get(ctx context.Context, path string, requiresAuth bool, out any) error
	Post(ctx context.Context, path string, body any, requiresAuth bool, out any) error
	Put(ctx context.Context, path string, body any, requiresAuth bool, out any) error
	PutRaw(ctx context.Context, rawURL string, data []byte) error
}

// withAuthRetry is the single implementation of the refresh-and-retry
// contract. Every authenticated repository method goes through it:
//
//  1. Run op. Anything but an authorization failure propagates unchanged.
//  2. On an authorization failure, refresh the token exactly once. A failed
//     refresh replaces the original error (typically with SessionExpired).
//  3. Retry op exactly once and return its outcome as-is. There is no loop:
//     a second 401 propagates.
func withAuthRetry[T any](ctx context.Context, refresher TokenRefresher, op func(context.Context) (T, error)) (T, error) {
	result, err := op(ctx)
	if err == nil || !apperrors.IsUnauthorized(err) {
		return result, err
	}

	if rerr := refresher.RefreshToken(ctx); rerr != nil {
		var zero T
		return zero, rerr
	}

	return op(ctx)
}

// withAuthRetryNoResult adapts withAuthRetry for operations without a
// response body.
func withAuthRetryNoResult(ctx context.Context, refresher TokenRefresher, op func(context.Context) error) error {
	_, err := withAuthRetry(ctx, refresher, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

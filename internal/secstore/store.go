// Package secstore persists the credential pair (access and refresh token)
// with at-rest protection. It is the only durable state the client owns.
package secstore

// Logical keys for the two secrets this client stores. The values are
// scoped to this application and must never be synchronized elsewhere.
const (
	KeyAccessToken  = "promentor.auth.access_token"
	KeyRefreshToken = "promentor.auth.refresh_token"
)

// Store is the secure credential store contract.
//
// Get reports absence via its second return value and reserves the error
// for storage failures. Delete and DeleteAll are idempotent: deleting a
// value that was never stored succeeds.
type Store interface {
	Save(key, value string) error
	Get(key string) (value string, ok bool, err error)
	Delete(key string) error
	DeleteAll() error
}

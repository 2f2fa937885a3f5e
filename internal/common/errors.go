// Package common defines shared constants and sentinel errors used across
// the cipherdrive server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// ErrorUnauthenticated is returned when no valid credential accompanies
	// a request.
	ErrorUnauthenticated = errors.New("unauthenticated")

	// ErrorForbidden is returned when the caller is authenticated but not
	// allowed to perform the action on the node.
	ErrorForbidden = errors.New("forbidden")

	// ErrorNotFound covers both a truly absent node and a node the caller
	// is not authorized to see. The two cases are deliberately
	// indistinguishable so existence never leaks to unauthorized callers.
	ErrorNotFound = errors.New("not found")

	// ErrorInvalidInput is returned when required encrypted fields are
	// missing from a request.
	ErrorInvalidInput = errors.New("invalid input")

	// ErrorNotEmpty is returned when deleting a folder that still has
	// children.
	ErrorNotEmpty = errors.New("folder not empty")

	// ErrorRecipientUnresolvable is returned when a share targets a user
	// with no published public key.
	ErrorRecipientUnresolvable = errors.New("recipient has no published public key")

	// ErrorContentMissing signals that node metadata exists but the object
	// store holds no blob for its storage key. Surfaced distinctly from
	// ErrorNotFound so operators can detect the inconsistency.
	ErrorContentMissing = errors.New("content missing in object store")

	// ErrorStoreUnavailable marks transient failures of the metadata or
	// object store. Safe for the caller to retry.
	ErrorStoreUnavailable = errors.New("store unavailable")

	// ErrorInternal is a generic server-side failure.
	ErrorInternal = errors.New("internal error")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrorLoginAlreadyExists is returned on registration with a taken email.
	ErrorLoginAlreadyExists = errors.New("login already exists")
)

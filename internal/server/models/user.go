package models

import "time"

// User is one subject: login credentials plus the published key record.
// PublicKey is readable by any authenticated caller; WrappedPrivateKey is
// the subject's own private key encrypted under a key only the subject
// can derive, so the server never holds enough to unwrap anything.
type User struct {
	ID          string
	Email       string
	DisplayName string

	PasswordHash []byte

	PublicKey         []byte
	WrappedPrivateKey []byte
	PrivateKeyNonce   []byte

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPublicKey reports whether the user has published a key pair yet.
func (u *User) HasPublicKey() bool {
	return len(u.PublicKey) > 0
}

// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
)

// WrappedKey is one per-recipient entry of a file's key list: the file's
// content key encrypted under that recipient's public key. The server
// stores it opaquely and can never unwrap it.
type WrappedKey struct {
	RecipientID string    `json:"forUid"`
	Wrapped     []byte    `json:"wrapped"`
	UpdatedAt   time.Time `json:"-"`
}

// Node is a file or folder metadata record. Ciphertext itself lives in
// object storage under StorageKey; every name and nonce field here is
// opaque to the server.
//
// Construct nodes through NewFolder or NewFile so the per-variant
// required fields are validated up front, instead of carrying
// conditionally-required fields through the write path.
type Node struct {
	ID       string  `json:"id"`
	OwnerID  string  `json:"ownerUid"`
	IsFolder bool    `json:"isFolder"`
	ParentID *string `json:"parentId"`

	// StorageKey is the object-storage key of the ciphertext blob.
	// Always empty for folders.
	StorageKey string `json:"-"`

	EncryptedName []byte `json:"nameEnc"`
	NameNonce     []byte `json:"nameNonce"`

	// ContentNonce is the AEAD nonce for the file content. Files only.
	ContentNonce []byte `json:"contentNonce,omitempty"`

	// MimeType and SizeBytes describe the plaintext as declared by the
	// caller. Advisory only, never used to interpret the ciphertext.
	MimeType  string `json:"mimeType,omitempty"`
	SizeBytes int64  `json:"sizeBytes"`

	// WrappedKeys holds one entry per recipient, unique by RecipientID.
	// The owner's own entry lets the owner decrypt without deriving
	// anything from elsewhere.
	WrappedKeys []WrappedKey `json:"dekWrapped,omitempty"`

	// AITags and Summary are non-authoritative annotations written by the
	// analysis worker after the fact. Core operations never depend on them.
	AITags  []string `json:"aiTags,omitempty"`
	Summary string   `json:"summary,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewFolder builds a folder node. Folders carry no storage key, no
// content nonce and no wrapped keys.
func NewFolder(ownerID string, parentID *string, encryptedName, nameNonce []byte) (*Node, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", common.ErrorInvalidInput)
	}
	if len(encryptedName) == 0 || len(nameNonce) == 0 {
		return nil, fmt.Errorf("%w: missing encrypted name or nonce", common.ErrorInvalidInput)
	}
	return &Node{
		OwnerID:       ownerID,
		IsFolder:      true,
		ParentID:      parentID,
		EncryptedName: encryptedName,
		NameNonce:     nameNonce,
	}, nil
}

// NewFile builds a file node. All encrypted fields and the storage key
// are required; the server can only validate presence, not correctness
// of the encryption.
func NewFile(ownerID string, parentID *string, storageKey string, encryptedName, nameNonce, contentNonce []byte, mimeType string, sizeBytes int64) (*Node, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: missing owner", common.ErrorInvalidInput)
	}
	if len(encryptedName) == 0 || len(nameNonce) == 0 {
		return nil, fmt.Errorf("%w: missing encrypted name or nonce", common.ErrorInvalidInput)
	}
	if len(contentNonce) == 0 {
		return nil, fmt.Errorf("%w: missing content nonce", common.ErrorInvalidInput)
	}
	if storageKey == "" {
		return nil, fmt.Errorf("%w: missing storage key", common.ErrorInvalidInput)
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return &Node{
		OwnerID:       ownerID,
		IsFolder:      false,
		ParentID:      parentID,
		StorageKey:    storageKey,
		EncryptedName: encryptedName,
		NameNonce:     nameNonce,
		ContentNonce:  contentNonce,
		MimeType:      mimeType,
		SizeBytes:     sizeBytes,
	}, nil
}

// WrappedKeyFor returns the wrapped-key entry for the given recipient,
// or nil when none exists.
func (n *Node) WrappedKeyFor(recipientID string) *WrappedKey {
	for i := range n.WrappedKeys {
		if n.WrappedKeys[i].RecipientID == recipientID {
			return &n.WrappedKeys[i]
		}
	}
	return nil
}

// Projection returns a copy of the node stripped of key material, for
// listings where the caller has not been authorized for this specific
// node's secrets.
func (n *Node) Projection() *Node {
	c := *n
	c.WrappedKeys = nil
	return &c
}

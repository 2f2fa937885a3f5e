package api

import (
	"net/http"

	"github.com/dmitrijs2005/cipherdrive/internal/server/services"
)

type KeysHandler struct {
	keys *services.KeyService
}

func NewKeysHandler(keys *services.KeyService) *KeysHandler {
	return &KeysHandler{keys: keys}
}

type publishKeysRequest struct {
	PublicKey         []byte `json:"publicKey"`
	WrappedPrivateKey []byte `json:"wrappedPrivateKey"`
	PrivateKeyNonce   []byte `json:"privateKeyNonce"`
}

// Publish stores the caller's key record. Re-publishing replaces it.
func (h *KeysHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishKeysRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.keys.Publish(r.Context(), callerID(r.Context()),
		req.PublicKey, req.WrappedPrivateKey, req.PrivateKeyNonce); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type publicKeyResponse struct {
	ID        string `json:"uid"`
	PublicKey []byte `json:"publicKey"`
}

type ownKeysResponse struct {
	ID                string `json:"uid"`
	PublicKey         []byte `json:"publicKey"`
	WrappedPrivateKey []byte `json:"wrappedPrivateKey"`
	PrivateKeyNonce   []byte `json:"privateKeyNonce"`
}

// Own returns the caller's full key record, wrapped private key included.
func (h *KeysHandler) Own(w http.ResponseWriter, r *http.Request) {
	user, err := h.keys.LookupOwn(r.Context(), callerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ownKeysResponse{
		ID:                user.ID,
		PublicKey:         user.PublicKey,
		WrappedPrivateKey: user.WrappedPrivateKey,
		PrivateKeyNonce:   user.PrivateKeyNonce,
	})
}

// Public returns only the public key of the subject in the path.
func (h *KeysHandler) Public(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")
	pub, err := h.keys.LookupPublic(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicKeyResponse{ID: uid, PublicKey: pub})
}

// LookupByEmail resolves a prospective share recipient by email.
func (h *KeysHandler) LookupByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.keys.LookupByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicKeyResponse{ID: user.ID, PublicKey: user.PublicKey})
}

package api

import (
	"io"
	"net/http"

	"github.com/dmitrijs2005/cipherdrive/internal/server/models"
	"github.com/dmitrijs2005/cipherdrive/internal/server/services"
)

// uploadLimit caps the request body; ciphertext arrives base64-encoded
// inside JSON so the limit is above the raw blob cap.
const uploadLimit = 64 << 20

type FilesHandler struct {
	nodes    *services.NodeService
	transfer *services.TransferService
	shares   *services.ShareService
}

func NewFilesHandler(nodes *services.NodeService, transfer *services.TransferService, shares *services.ShareService) *FilesHandler {
	return &FilesHandler{nodes: nodes, transfer: transfer, shares: shares}
}

// List returns every node the caller owns.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.nodes.ListAll(r.Context(), callerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []*models.Node{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Children returns the caller's nodes under ?parentId= (absent for root).
func (h *FilesHandler) Children(w http.ResponseWriter, r *http.Request) {
	var parentID *string
	if p := r.URL.Query().Get("parentId"); p != "" {
		parentID = &p
	}

	items, err := h.nodes.ListChildren(r.Context(), callerID(r.Context()), parentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []*models.Node{}
	}
	writeJSON(w, http.StatusOK, items)
}

type createFolderRequest struct {
	ParentID  *string `json:"parentId"`
	NameEnc   []byte  `json:"nameEnc"`
	NameNonce []byte  `json:"nameNonce"`
}

func (h *FilesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	node, err := h.nodes.CreateFolder(r.Context(), callerID(r.Context()), req.ParentID, req.NameEnc, req.NameNonce)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	node, err := h.nodes.Get(r.Context(), r.PathValue("id"), callerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

type renameRequest struct {
	NameEnc   []byte `json:"nameEnc"`
	NameNonce []byte `json:"nameNonce"`
}

func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.nodes.Rename(r.Context(), r.PathValue("id"), callerID(r.Context()), req.NameEnc, req.NameNonce); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.nodes.Delete(r.Context(), r.PathValue("id"), callerID(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type uploadRequest struct {
	ParentID     *string `json:"parentId"`
	NameEnc      []byte  `json:"nameEnc"`
	NameNonce    []byte  `json:"nameNonce"`
	ContentNonce []byte  `json:"contentNonce"`
	Ciphertext   []byte  `json:"ciphertext"`
	DekWrapped   []byte  `json:"dekWrapped"`
	MimeType     string  `json:"mimeType"`
	SizeBytes    int64   `json:"sizeBytes"`
}

func (h *FilesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, uploadLimit)

	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	node, err := h.transfer.Upload(r.Context(), services.UploadRequest{
		OwnerID:            callerID(r.Context()),
		ParentID:           req.ParentID,
		EncryptedName:      req.NameEnc,
		NameNonce:          req.NameNonce,
		ContentNonce:       req.ContentNonce,
		Ciphertext:         req.Ciphertext,
		WrappedKeyForOwner: req.DekWrapped,
		MimeType:           req.MimeType,
		DeclaredSize:       req.SizeBytes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

type downloadResponse struct {
	Node        *models.Node `json:"node"`
	DownloadURL string       `json:"downloadUrl"`
}

// Download returns the node's encrypted fields plus a short-lived
// presigned URL for the ciphertext.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	res, err := h.transfer.Download(r.Context(), r.PathValue("id"), callerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, downloadResponse{Node: res.Node, DownloadURL: res.DownloadURL})
}

// Raw streams the ciphertext bytes directly.
func (h *FilesHandler) Raw(w http.ResponseWriter, r *http.Request) {
	rc, err := h.transfer.OpenRaw(r.Context(), r.PathValue("id"), callerID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, rc)
}

type shareRequest struct {
	ForUID  string `json:"forUid"`
	Wrapped []byte `json:"wrapped"`
}

func (h *FilesHandler) Share(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.shares.Share(r.Context(), r.PathValue("id"), callerID(r.Context()), req.ForUID, req.Wrapped); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

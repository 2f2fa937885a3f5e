// Package api is the HTTP client for the cipherdrive backend. It speaks
// the server's JSON API and carries the bearer token; all encryption
// happens in the caller before anything reaches this package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// APIError is a decoded error response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d (%s): %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL      string
	http         *http.Client
	accessToken  string
	refreshToken string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// IsLoggedIn reports whether the client holds an access token.
func (c *Client) IsLoggedIn() bool {
	return c.accessToken != ""
}

// Logout drops the stored tokens.
func (c *Client) Logout() {
	c.accessToken = ""
	c.refreshToken = ""
}

type User struct {
	ID          string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

type WrappedKey struct {
	RecipientID string `json:"forUid"`
	Wrapped     []byte `json:"wrapped"`
}

type Node struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"ownerUid"`
	IsFolder      bool         `json:"isFolder"`
	ParentID      *string      `json:"parentId"`
	EncryptedName []byte       `json:"nameEnc"`
	NameNonce     []byte       `json:"nameNonce"`
	ContentNonce  []byte       `json:"contentNonce,omitempty"`
	MimeType      string       `json:"mimeType,omitempty"`
	SizeBytes     int64        `json:"sizeBytes"`
	WrappedKeys   []WrappedKey `json:"dekWrapped,omitempty"`
	AITags        []string     `json:"aiTags,omitempty"`
	Summary       string       `json:"summary,omitempty"`
}

// WrappedKeyFor returns the wrapped entry for recipientID, or nil.
func (n *Node) WrappedKeyFor(recipientID string) *WrappedKey {
	for i := range n.WrappedKeys {
		if n.WrappedKeys[i].RecipientID == recipientID {
			return &n.WrappedKeys[i]
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		return &APIError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email": email, "password": password, "displayName": displayName,
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Login authenticates and stores the token pair on the client.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &pair); err != nil {
		return err
	}
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
	return nil
}

// Refresh rotates the refresh token and replaces both stored tokens.
func (c *Client) Refresh(ctx context.Context) error {
	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": c.refreshToken,
	}, &pair); err != nil {
		return err
	}
	c.accessToken = pair.AccessToken
	c.refreshToken = pair.RefreshToken
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) PublishKeys(ctx context.Context, publicKey, wrappedPrivateKey, privateKeyNonce []byte) error {
	return c.do(ctx, http.MethodPut, "/api/keys", map[string][]byte{
		"publicKey":         publicKey,
		"wrappedPrivateKey": wrappedPrivateKey,
		"privateKeyNonce":   privateKeyNonce,
	}, nil)
}

type OwnKeys struct {
	ID                string `json:"uid"`
	PublicKey         []byte `json:"publicKey"`
	WrappedPrivateKey []byte `json:"wrappedPrivateKey"`
	PrivateKeyNonce   []byte `json:"privateKeyNonce"`
}

func (c *Client) OwnKeys(ctx context.Context) (*OwnKeys, error) {
	var keys OwnKeys
	if err := c.do(ctx, http.MethodGet, "/api/keys/own", nil, &keys); err != nil {
		return nil, err
	}
	return &keys, nil
}

type PublicKeyRecord struct {
	ID        string `json:"uid"`
	PublicKey []byte `json:"publicKey"`
}

// LookupUser resolves a share recipient by email.
func (c *Client) LookupUser(ctx context.Context, email string) (*PublicKeyRecord, error) {
	var rec PublicKeyRecord
	if err := c.do(ctx, http.MethodGet, "/api/users/lookup?email="+url.QueryEscape(email), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) List(ctx context.Context) ([]Node, error) {
	var items []Node
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) GetNode(ctx context.Context, id string) (*Node, error) {
	var n Node
	if err := c.do(ctx, http.MethodGet, "/api/files/"+id, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

type UploadInput struct {
	ParentID     *string `json:"parentId"`
	NameEnc      []byte  `json:"nameEnc"`
	NameNonce    []byte  `json:"nameNonce"`
	ContentNonce []byte  `json:"contentNonce"`
	Ciphertext   []byte  `json:"ciphertext"`
	DekWrapped   []byte  `json:"dekWrapped"`
	MimeType     string  `json:"mimeType"`
	SizeBytes    int64   `json:"sizeBytes"`
}

func (c *Client) Upload(ctx context.Context, in UploadInput) (*Node, error) {
	var n Node
	if err := c.do(ctx, http.MethodPost, "/api/files/upload", in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

type DownloadOutput struct {
	Node        Node   `json:"node"`
	DownloadURL string `json:"downloadUrl"`
}

func (c *Client) Download(ctx context.Context, id string) (*DownloadOutput, error) {
	var out DownloadOutput
	if err := c.do(ctx, http.MethodGet, "/api/files/"+id+"/download", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Share(ctx context.Context, id, forUID string, wrapped []byte) error {
	return c.do(ctx, http.MethodPost, "/api/files/"+id+"/share", map[string]any{
		"forUid": forUID, "wrapped": wrapped,
	}, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+id, nil, nil)
}

package cli

import (
	"context"
	"fmt"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cipherdrive/internal/client/api"
	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/cryptox"
	"github.com/dmitrijs2005/cipherdrive/internal/filex"
	"github.com/dmitrijs2005/cipherdrive/internal/netx"
)

// Upload encrypts a local file with a fresh content key and sends the
// ciphertext plus the key wrapped for the caller.
func (a *App) Upload(ctx context.Context, path string) error {
	plaintext, err := os.ReadFile(path)
	if err != nil {
		log.Printf("reading %s failed: %v", path, err)
		return err
	}

	contentKey, err := cryptox.MakeContentKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(contentKey)

	ciphertext, contentNonce, err := cryptox.EncryptBytes(plaintext, contentKey)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	nameEnc, nameNonce, err := cryptox.EncryptBytes([]byte(name), contentKey)
	if err != nil {
		return err
	}

	wrapped, err := cryptox.WrapKey(contentKey, a.publicKey)
	if err != nil {
		return err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(name))

	node, err := a.client.Upload(ctx, api.UploadInput{
		NameEnc:      nameEnc,
		NameNonce:    nameNonce,
		ContentNonce: contentNonce,
		Ciphertext:   ciphertext,
		DekWrapped:   wrapped,
		MimeType:     mimeType,
		SizeBytes:    int64(len(plaintext)),
	})
	if err != nil {
		log.Printf("upload failed: %v", err)
		return err
	}

	log.Printf("Uploaded %s as %s", name, node.ID)
	return nil
}

// Download fetches the ciphertext via the presigned URL, decrypts content
// and name locally and saves the file into the download directory.
func (a *App) Download(ctx context.Context, id string) error {
	res, err := a.client.Download(ctx, id)
	if err != nil {
		log.Printf("download failed: %v", err)
		return err
	}

	contentKey, err := a.unwrapContentKey(&res.Node)
	if err != nil {
		log.Printf("unwrapping content key failed: %v", err)
		return err
	}
	defer common.WipeByteArray(contentKey)

	ciphertext, err := netx.DownloadFromPresignedURL(ctx, res.DownloadURL)
	if err != nil {
		log.Printf("fetching blob failed: %v", err)
		return err
	}

	plaintext, err := cryptox.DecryptBytes(ciphertext, res.Node.ContentNonce, contentKey)
	if err != nil {
		log.Printf("decrypting content failed: %v", err)
		return err
	}

	name, err := a.decryptName(&res.Node, contentKey)
	if err != nil {
		name = id
	}

	dir, err := filex.EnsureSubDir(a.config.DownloadDir)
	if err != nil {
		return err
	}
	path, err := filex.SaveToDir(dir, name, plaintext)
	if err != nil {
		return err
	}

	log.Printf("Saved %s", path)
	return nil
}

// List prints the caller's nodes with names decrypted where possible.
func (a *App) List(ctx context.Context) error {
	items, err := a.client.List(ctx)
	if err != nil {
		log.Printf("listing failed: %v", err)
		return err
	}

	for i := range items {
		n := &items[i]
		if n.IsFolder {
			printlnFn(fmt.Sprintf("%s  [folder]", n.ID))
			continue
		}

		name := "(name unavailable)"
		if full, err := a.client.GetNode(ctx, n.ID); err == nil {
			if key, err := a.unwrapContentKey(full); err == nil {
				if d, err := a.decryptName(full, key); err == nil {
					name = d
				}
				common.WipeByteArray(key)
			}
		}

		line := fmt.Sprintf("%s  %s  %d bytes", n.ID, name, n.SizeBytes)
		if len(n.AITags) > 0 {
			line += "  [" + strings.Join(n.AITags, ",") + "]"
		}
		printlnFn(line)
	}
	return nil
}

// Share wraps the file's content key for the recipient's public key and
// registers the entry on the server.
func (a *App) Share(ctx context.Context, id, email string) error {
	recipient, err := a.client.LookupUser(ctx, email)
	if err != nil {
		log.Printf("recipient lookup failed: %v", err)
		return err
	}

	node, err := a.client.GetNode(ctx, id)
	if err != nil {
		log.Printf("loading file failed: %v", err)
		return err
	}

	contentKey, err := a.unwrapContentKey(node)
	if err != nil {
		log.Printf("unwrapping content key failed: %v", err)
		return err
	}
	defer common.WipeByteArray(contentKey)

	wrapped, err := cryptox.WrapKey(contentKey, recipient.PublicKey)
	if err != nil {
		return err
	}

	if err := a.client.Share(ctx, id, recipient.ID, wrapped); err != nil {
		log.Printf("sharing failed: %v", err)
		return err
	}

	log.Printf("Shared %s with %s", id, email)
	return nil
}

func (a *App) Remove(ctx context.Context, id string) error {
	if err := a.client.Delete(ctx, id); err != nil {
		log.Printf("delete failed: %v", err)
		return err
	}
	log.Printf("Deleted %s", id)
	return nil
}

func (a *App) unwrapContentKey(node *api.Node) ([]byte, error) {
	wk := node.WrappedKeyFor(a.userID)
	if wk == nil {
		return nil, fmt.Errorf("no wrapped key for this account on node %s", node.ID)
	}
	return cryptox.UnwrapKey(wk.Wrapped, a.publicKey, a.privateKey)
}

func (a *App) decryptName(node *api.Node, contentKey []byte) (string, error) {
	name, err := cryptox.DecryptBytes(node.EncryptedName, node.NameNonce, contentKey)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

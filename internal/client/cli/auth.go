package cli

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/cryptox"
)

// Register creates an account, generates a key pair and publishes it with
// the private key wrapped under the password-derived master key.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	displayName, err := GetSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.client.Register(ctx, email, password2string(password), displayName)
	if err != nil {
		log.Printf("registration failed: %v", err)
		return err
	}

	if err := a.client.Login(ctx, email, password2string(password)); err != nil {
		log.Printf("login failed: %v", err)
		return err
	}

	pub, priv, err := cryptox.GenerateKeyPair()
	if err != nil {
		return err
	}
	blob, nonce, err := cryptox.WrapPrivateKey(priv, password)
	if err != nil {
		return err
	}
	if err := a.client.PublishKeys(ctx, pub, blob, nonce); err != nil {
		log.Printf("key publication failed: %v", err)
		return err
	}

	a.userID = user.ID
	a.publicKey = pub
	a.privateKey = priv
	log.Printf("Registered as %s", email)
	return nil
}

// Login authenticates, fetches the published key record and unwraps the
// private key locally with the password.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.client.Login(ctx, email, password2string(password)); err != nil {
		log.Printf("login failed: %v", err)
		return err
	}

	keys, err := a.client.OwnKeys(ctx)
	if err != nil {
		log.Printf("fetching keys failed: %v", err)
		return err
	}
	if len(keys.PublicKey) == 0 {
		log.Printf("no published keys for this account, run register on a fresh account")
		return nil
	}

	priv, err := cryptox.UnwrapPrivateKey(keys.WrappedPrivateKey, keys.PrivateKeyNonce, password)
	if err != nil {
		log.Printf("unwrapping private key failed: %v", err)
		return err
	}

	a.userID = keys.ID
	a.publicKey = keys.PublicKey
	a.privateKey = priv
	log.Printf("Logged in as %s", email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.client.Logout()
	common.WipeByteArray(a.privateKey)
	a.userID = ""
	a.publicKey = nil
	a.privateKey = nil
	log.Println("Logged out")
	return nil
}

func password2string(pw []byte) string {
	return string(pw)
}

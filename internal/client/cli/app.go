// Package cli is an interactive client for cipherdrive. Every file is
// encrypted locally before upload and decrypted locally after download;
// the session's private key lives only in process memory.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/cipherdrive/internal/client/api"
	"github.com/dmitrijs2005/cipherdrive/internal/client/config"
)

type App struct {
	config *config.Config
	client *api.Client
	reader *bufio.Reader

	userID     string
	publicKey  []byte
	privateKey []byte
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		client: api.NewClient(c.ServerURL),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.privateKey != nil
}

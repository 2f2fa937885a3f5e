// Package netx holds small HTTP helpers used by the CLI client.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DownloadFromPresignedURL fetches a blob from a presigned object-store URL.
func DownloadFromPresignedURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	return io.ReadAll(resp.Body)
}

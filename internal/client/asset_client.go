package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// AssetClient downloads generated assets (compiled videos) to local disk.
type AssetClient struct {
	httpClient *http.Client
}

// NewAssetClient creates a new asset download client.
func NewAssetClient() *AssetClient {
	return &AssetClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Download streams the asset at url into destPath. The file is written to a
// temp path and renamed on success so a failed download never leaves a
// truncated asset behind.
func (c *AssetClient) Download(ctx context.Context, assetURL, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create asset folder: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("[Assets] → GET %s", assetURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("asset download error (status %d)", resp.StatusCode)
	}

	tmp := destPath + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create asset file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write asset file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close asset file: %w", err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize asset file: %w", err)
	}

	log.Printf("[Assets] Saved %s", destPath)
	return nil
}

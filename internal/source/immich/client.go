package immich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kaito/photomirror/internal/source"
)

// Client talks to an Immich server's REST API. It implements
// source.Source.
type Client struct {
	http *resty.Client
}

// Config holds Immich connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New creates a new Immich client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Client{http: http}
}

// Ping checks connectivity to the Immich server.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/server/ping")
	if err != nil {
		return fmt.Errorf("immich ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("immich ping: HTTP %d", resp.StatusCode())
	}
	return nil
}

type albumResponse struct {
	ID          string          `json:"id"`
	AlbumName   string          `json:"albumName"`
	AssetCount  int             `json:"assetCount"`
	Description string          `json:"description"`
	Assets      []assetResponse `json:"assets"`
}

type assetResponse struct {
	ID               string    `json:"id"`
	OriginalFileName string    `json:"originalFileName"`
	Checksum         string    `json:"checksum"`
	UpdatedAt        string    `json:"updatedAt"`
	ExifInfo         *exifInfo `json:"exifInfo"`
}

type exifInfo struct {
	FileSizeInByte int64 `json:"fileSizeInByte"`
}

// ListAlbums returns all albums visible to the API key.
func (c *Client) ListAlbums(ctx context.Context) ([]source.Album, error) {
	var albums []albumResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&albums).Get("/api/albums")
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list albums: HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]source.Album, 0, len(albums))
	for _, a := range albums {
		name := a.AlbumName
		if name == "" {
			name = "Untitled"
		}
		out = append(out, source.Album{
			ID:          a.ID,
			Name:        name,
			AssetCount:  a.AssetCount,
			Description: a.Description,
		})
	}
	return out, nil
}

// ListContainerAssets returns the assets of one album in the order
// Immich reports them.
func (c *Client) ListContainerAssets(ctx context.Context, containerID string) ([]source.Asset, error) {
	var album albumResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&album).
		Get("/api/albums/" + containerID)
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", containerID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get album %s: HTTP %d: %s", containerID, resp.StatusCode(), resp.String())
	}

	assets := make([]source.Asset, 0, len(album.Assets))
	for _, a := range album.Assets {
		filename := a.OriginalFileName
		if filename == "" {
			filename = "unknown"
		}
		asset := source.Asset{
			ID:        a.ID,
			Filename:  filename,
			Checksum:  a.Checksum,
			UpdatedAt: a.UpdatedAt,
		}
		if a.ExifInfo != nil {
			asset.Size = a.ExifInfo.FileSizeInByte
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// FetchAssetBytes downloads the original bytes of one asset.
func (c *Client) FetchAssetBytes(ctx context.Context, assetID string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).
		SetHeader("Accept", "application/octet-stream").
		Get("/api/assets/" + assetID + "/original")
	if err != nil {
		return nil, fmt.Errorf("download asset %s: %w", assetID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download asset %s: HTTP %d", assetID, resp.StatusCode())
	}
	return resp.Body(), nil
}

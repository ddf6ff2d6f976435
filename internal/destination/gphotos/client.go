package gphotos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kaito/photomirror/internal/destination"
)

const (
	apiBase  = "https://photoslibrary.googleapis.com/v1"
	tokenURL = "https://oauth2.googleapis.com/token"

	// batchRemoveMediaItems accepts at most 50 ids per call
	removeBatchSize = 50
)

// Client talks to the Google Photos Library API using a long-lived
// OAuth refresh token. It implements destination.Destination.
//
// Access tokens are minted lazily from the refresh token and cached
// until shortly before expiry. The interactive consent flow that
// produced the refresh token is outside this client.
type Client struct {
	http *resty.Client

	clientID     string
	clientSecret string
	refreshToken string

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

// Config holds Google Photos OAuth client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// New creates a new Google Photos client.
func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		http:         resty.New().SetTimeout(timeout),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid access token, refreshing it when the cached one
// is missing or within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.expiry) > time.Minute {
		return c.accessToken, nil
	}

	var tok tokenResponse
	resp, err := c.http.R().SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"refresh_token": c.refreshToken,
			"grant_type":    "refresh_token",
		}).
		SetResult(&tok).
		Post(tokenURL)
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("refresh access token: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if tok.AccessToken == "" {
		return "", errors.New("refresh access token: empty token in response")
	}

	c.accessToken = tok.AccessToken
	c.expiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type albumListResponse struct {
	Albums        []album `json:"albums"`
	NextPageToken string  `json:"nextPageToken"`
}

// EnsureContainer finds an app-created album by title or creates one.
func (c *Client) EnsureContainer(ctx context.Context, name string) (string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	pageToken := ""
	for {
		var page albumListResponse
		req := c.http.R().SetContext(ctx).
			SetAuthToken(tok).
			SetQueryParam("pageSize", "50").
			SetResult(&page)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}
		resp, err := req.Get(apiBase + "/albums")
		if err != nil {
			return "", fmt.Errorf("list albums: %w", err)
		}
		if resp.IsError() {
			return "", fmt.Errorf("list albums: HTTP %d: %s", resp.StatusCode(), resp.String())
		}
		for _, a := range page.Albums {
			if a.Title == name {
				return a.ID, nil
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	var created album
	resp, err := c.http.R().SetContext(ctx).
		SetAuthToken(tok).
		SetBody(map[string]interface{}{"album": map[string]string{"title": name}}).
		SetResult(&created).
		Post(apiBase + "/albums")
	if err != nil {
		return "", fmt.Errorf("create album %q: %w", name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("create album %q: HTTP %d: %s", name, resp.StatusCode(), resp.String())
	}
	return created.ID, nil
}

// Upload pushes raw bytes and returns the upload token Google hands back.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.http.R().SetContext(ctx).
		SetAuthToken(tok).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("X-Goog-Upload-Content-Type", "application/octet-stream").
		SetHeader("X-Goog-Upload-Protocol", "raw").
		SetHeader("X-Goog-Upload-File-Name", filename).
		SetBody(data).
		Post(apiBase + "/uploads")
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", filename, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("upload %q: HTTP %d: %s", filename, resp.StatusCode(), resp.String())
	}

	uploadToken := strings.TrimSpace(string(resp.Body()))
	if uploadToken == "" {
		return "", fmt.Errorf("upload %q: empty upload token", filename)
	}
	return uploadToken, nil
}

type batchCreateResponse struct {
	NewMediaItemResults []struct {
		UploadToken string `json:"uploadToken"`
		Status      struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"status"`
		MediaItem *struct {
			ID         string `json:"id"`
			ProductURL string `json:"productUrl"`
		} `json:"mediaItem"`
	} `json:"newMediaItemResults"`
}

// FinalizeItems turns upload tokens into album media items via
// mediaItems:batchCreate.
func (c *Client) FinalizeItems(ctx context.Context, items []destination.NewItem, containerID string) ([]destination.ItemResult, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	newItems := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		newItems = append(newItems, map[string]interface{}{
			"simpleMediaItem": map[string]string{
				"uploadToken": it.UploadToken,
				"fileName":    it.Filename,
			},
		})
	}
	body := map[string]interface{}{"newMediaItems": newItems}
	if containerID != "" {
		body["albumId"] = containerID
	}

	var out batchCreateResponse
	resp, err := c.http.R().SetContext(ctx).
		SetAuthToken(tok).
		SetBody(body).
		SetResult(&out).
		Post(apiBase + "/mediaItems:batchCreate")
	if err != nil {
		return nil, fmt.Errorf("batch create: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("batch create: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.NewMediaItemResults) != len(items) {
		return nil, fmt.Errorf("batch create: got %d results for %d items", len(out.NewMediaItemResults), len(items))
	}

	results := make([]destination.ItemResult, len(items))
	for i, r := range out.NewMediaItemResults {
		if r.MediaItem == nil || r.MediaItem.ID == "" {
			msg := r.Status.Message
			if msg == "" {
				msg = "media item not created"
			}
			results[i] = destination.ItemResult{Err: errors.New(msg)}
			continue
		}
		results[i] = destination.ItemResult{
			ItemID: r.MediaItem.ID,
			URL:    r.MediaItem.ProductURL,
		}
	}
	return results, nil
}

type searchResponse struct {
	MediaItems []struct {
		ID string `json:"id"`
	} `json:"mediaItems"`
	NextPageToken string `json:"nextPageToken"`
}

// ListContainerItems pages through mediaItems:search for the album.
func (c *Client) ListContainerItems(ctx context.Context, containerID string) ([]string, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	pageToken := ""
	for {
		body := map[string]interface{}{
			"albumId":  containerID,
			"pageSize": 100,
		}
		if pageToken != "" {
			body["pageToken"] = pageToken
		}
		var page searchResponse
		resp, err := c.http.R().SetContext(ctx).
			SetAuthToken(tok).
			SetBody(body).
			SetResult(&page).
			Post(apiBase + "/mediaItems:search")
		if err != nil {
			return nil, fmt.Errorf("search media items: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("search media items: HTTP %d: %s", resp.StatusCode(), resp.String())
		}
		for _, it := range page.MediaItems {
			ids = append(ids, it.ID)
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return ids, nil
}

// DeleteItems removes media items from the album via
// batchRemoveMediaItems. The API has no true delete for app-created
// content; removal from the app album is the strongest operation
// available. Each batch is atomic on Google's side, so a batch error
// marks every id in that batch as failed.
func (c *Client) DeleteItems(ctx context.Context, itemIDs []string, containerID string) (destination.DeleteResult, error) {
	result := destination.DeleteResult{Failed: make(map[string]string)}
	if len(itemIDs) == 0 {
		return result, nil
	}

	tok, err := c.token(ctx)
	if err != nil {
		return result, err
	}

	for start := 0; start < len(itemIDs); start += removeBatchSize {
		end := start + removeBatchSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		batch := itemIDs[start:end]

		resp, err := c.http.R().SetContext(ctx).
			SetAuthToken(tok).
			SetBody(map[string]interface{}{"mediaItemIds": batch}).
			Post(apiBase + "/albums/" + containerID + ":batchRemoveMediaItems")

		switch {
		case err != nil:
			for _, id := range batch {
				result.Failed[id] = err.Error()
			}
		case resp.IsError():
			msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), resp.String())
			for _, id := range batch {
				result.Failed[id] = msg
			}
		default:
			result.Deleted = append(result.Deleted, batch...)
		}
	}
	return result, nil
}

package source

import "context"

// Asset is one item of the source inventory. Checksum may be empty;
// callers fall back to UpdatedAt+Filename for change detection.
type Asset struct {
	ID        string // unique id within the source
	Filename  string
	Checksum  string
	UpdatedAt string
	Size      int64
}

// Album is a source-side container of assets.
type Album struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AssetCount  int    `json:"asset_count"`
	Description string `json:"description,omitempty"`
}

// Source defines the interface for the authoritative photo source.
type Source interface {
	// ListContainerAssets returns the inventory of one container in the
	// order the source reports it; callers must not assume any sort.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - containerID: source container (album) id.
	// Returns:
	//   - []Asset: ordered inventory.
	//   - error: non-nil if listing fails.
	ListContainerAssets(ctx context.Context, containerID string) ([]Asset, error)

	// FetchAssetBytes downloads the full original bytes of one asset.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - assetID: source asset id.
	// Returns:
	//   - []byte: asset content.
	//   - error: non-nil if the download fails.
	FetchAssetBytes(ctx context.Context, assetID string) ([]byte, error)
}

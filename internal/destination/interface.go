package destination

import "context"

// NewItem pairs an upload token with its filename for finalization.
type NewItem struct {
	UploadToken string
	Filename    string
}

// ItemResult is the per-item outcome of FinalizeItems. Err is non-nil
// when the destination rejected that item; ItemID/URL are then empty.
type ItemResult struct {
	ItemID string
	URL    string
	Err    error
}

// DeleteResult reports the per-item outcome of a bulk delete. Failed
// maps item id to the destination's error message.
type DeleteResult struct {
	Deleted []string
	Failed  map[string]string
}

// Destination defines the interface for the mirror target service.
// Upload and FinalizeItems are split because some destinations stage
// raw bytes first and attach metadata in a second call.
type Destination interface {
	// EnsureContainer idempotently resolves or creates the named
	// container and returns its id.
	EnsureContainer(ctx context.Context, name string) (string, error)

	// Upload pushes raw bytes and returns an opaque upload token.
	Upload(ctx context.Context, data []byte, filename string) (string, error)

	// FinalizeItems turns upload tokens into container items. The result
	// slice is positionally aligned with items.
	FinalizeItems(ctx context.Context, items []NewItem, containerID string) ([]ItemResult, error)

	// ListContainerItems returns the ids of all items currently in the
	// container.
	ListContainerItems(ctx context.Context, containerID string) ([]string, error)

	// DeleteItems attempts bulk removal and reports per-item outcomes.
	DeleteItems(ctx context.Context, itemIDs []string, containerID string) (DeleteResult, error)
}

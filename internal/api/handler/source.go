package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaito/photomirror/internal/source"
)

// AlbumLister is the browse surface of the source adapter. Satisfied by
// *immich.Client.
type AlbumLister interface {
	ListAlbums(ctx context.Context) ([]source.Album, error)
}

// SourceHandler proxies source-side browsing used to pick the album to
// mirror.
type SourceHandler struct {
	albums AlbumLister
}

// NewSourceHandler creates a new source handler.
func NewSourceHandler(albums AlbumLister) *SourceHandler {
	return &SourceHandler{albums: albums}
}

// ListAlbums lists the albums available on the source.
func (h *SourceHandler) ListAlbums(c *gin.Context) {
	albums, err := h.albums.ListAlbums(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums})
}

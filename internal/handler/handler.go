package handler

import (
	"context"
	"strings"

	"github.com/promptfolio/api/internal/catalog"
	"github.com/promptfolio/api/internal/linkpreview"
	"github.com/promptfolio/api/internal/shareid"
)

// CatalogStore is the read side of the catalog the handlers serve.
type CatalogStore interface {
	GetCompany(ctx context.Context, id string) (*catalog.Company, error)
	GetJob(ctx context.Context, id string) (*catalog.Job, error)
	ListCompanies(ctx context.Context, f catalog.Filter) ([]catalog.Company, int, error)
	ListJobs(ctx context.Context, f catalog.JobFilter) ([]catalog.Job, int, error)
}

// PreviewSource resolves link previews, normally a *linkpreview.Cache.
type PreviewSource interface {
	Get(ctx context.Context, url string) (*linkpreview.Record, error)
}

// Handler serves the catalog and link preview endpoints.
type Handler struct {
	codec     *shareid.Codec
	catalog   CatalogStore
	previews  PreviewSource
	publicURL string
}

// Dependencies holds all dependencies for the Handler
type Dependencies struct {
	Codec     *shareid.Codec
	Catalog   CatalogStore
	Previews  PreviewSource
	PublicURL string
}

// New creates a new Handler with all dependencies
func New(deps Dependencies) *Handler {
	return &Handler{
		codec:     deps.Codec,
		catalog:   deps.Catalog,
		previews:  deps.Previews,
		publicURL: strings.TrimRight(deps.PublicURL, "/"),
	}
}

// shareLink returns the token and public URL for an entity, or two empty
// strings when the ID cannot be encoded.
func (h *Handler) shareLink(kind, id string) (token, url string) {
	token = h.codec.Encode(id)
	if token == "" {
		return "", ""
	}
	return token, h.publicURL + "/" + kind + "/" + token
}

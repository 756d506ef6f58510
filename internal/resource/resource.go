// Package resource resolves resource URIs, including short aliases, to the
// text their provider serves.
package resource

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/errs"
	imcp "github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/registry"
)

// Catalog is the registry view the resolver needs.
type Catalog interface {
	Resource(uri string) (mcp.Resource, registry.Owner, bool)
	Resources() []mcp.Resource
}

// Resolver reads resources through the registry.
type Resolver struct {
	catalog Catalog
	log     zerolog.Logger
}

// New creates a resolver over catalog.
func New(catalog Catalog, log zerolog.Logger) *Resolver {
	return &Resolver{catalog: catalog, log: log}
}

// Lookup finds the registered resource uri refers to.
//
// An exact match wins. Otherwise, if uri has a scheme some registered
// resource shares, the registered URIs of that scheme are scanned in sorted
// order for one whose path equals the requested path or ends with "/" and
// the requested path.
func (r *Resolver) Lookup(uri string) (mcp.Resource, registry.Owner, error) {
	if res, owner, ok := r.catalog.Resource(uri); ok {
		return res, owner, nil
	}

	scheme, path, ok := Split(uri)
	if !ok || path == "" {
		return mcp.Resource{}, nil, errs.NotFound("resource", uri)
	}
	for _, res := range r.catalog.Resources() {
		s, p, ok := Split(res.URI)
		if !ok || s != scheme {
			continue
		}
		if p == path || strings.HasSuffix(p, "/"+path) {
			r.log.Debug().Str("requested", uri).Str("resolved", res.URI).Msg("resource alias")
			found, owner, _ := r.catalog.Resource(res.URI)
			return found, owner, nil
		}
	}
	return mcp.Resource{}, nil, errs.NotFound("resource", uri)
}

// Resolve returns the text of the resource uri refers to.
func (r *Resolver) Resolve(ctx context.Context, uri string) (string, error) {
	res, owner, err := r.Lookup(uri)
	if err != nil {
		return "", err
	}

	result, err := owner.ReadResource(ctx, res.URI)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Contents) != 1 {
		n := 0
		if result != nil {
			n = len(result.Contents)
		}
		return "", errs.Malformed("resource %q returned %d content entries, expected 1", res.URI, n)
	}
	text, ok := imcp.ResourceText(result.Contents[0])
	if !ok {
		return "", errs.Malformed("resource %q returned non-text content", res.URI)
	}
	return text, nil
}

// Split breaks uri into scheme and the part after "://".
func Split(uri string) (scheme, path string, ok bool) {
	scheme, path, ok = strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return "", "", false
	}
	return scheme, path, true
}

// Shorthand expands an @name reference into a URI of the given scheme.
// A name that already carries a scheme is returned unchanged.
func Shorthand(name, scheme string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if strings.Contains(name, "://") {
		return name
	}
	return scheme + "://" + name
}

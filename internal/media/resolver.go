// Package media turns stored media references into client-facing URLs.
package media

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dkeye/heartlink/internal/domain"
)

// BaseURLResolver joins relative references onto a base URL. Absolute http(s)
// URLs are returned unchanged.
type BaseURLResolver struct {
	base *url.URL
}

func NewBaseURLResolver(base string) (*BaseURLResolver, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse media base url: %w", err)
	}
	if base != "" && (u.Scheme == "" || u.Host == "") {
		return nil, fmt.Errorf("media base url %q must be absolute", base)
	}
	return &BaseURLResolver{base: u}, nil
}

func (r *BaseURLResolver) ResolveMediaURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty media reference", domain.ErrInvalidInput)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: media reference: %v", domain.ErrInvalidInput, err)
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("%w: media scheme %q", domain.ErrInvalidInput, u.Scheme)
		}
		return u.String(), nil
	}
	if r.base == nil || r.base.Host == "" {
		return ref, nil
	}
	return r.base.JoinPath(strings.TrimPrefix(u.Path, "/")).String(), nil
}

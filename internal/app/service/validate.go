package service

import (
	"net/url"
	"strings"

	"github.com/happybase/portal/internal/app/domain"
	"github.com/happybase/portal/internal/config"
)

// validateURL checks raw is an absolute http(s) URL. For catalog apps the
// hostname must be the entry's domain or one of its subdomains.
func validateURL(raw string, entry *config.CatalogEntry) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", domain.ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", domain.ErrInvalidURL
	}

	if entry == nil {
		return raw, nil
	}

	host := strings.ToLower(u.Hostname())
	want := strings.ToLower(entry.Domain)
	if host != want && !strings.HasSuffix(host, "."+want) {
		return "", domain.ErrDomainMismatch
	}
	return raw, nil
}

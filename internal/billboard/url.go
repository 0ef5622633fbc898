package billboard

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Site layout constants.
const (
	DefaultBaseURL  = "https://www.billboard.com"
	ArchiveRootPath = "/archive/charts/1958"
	ChartPathPrefix = "/charts/hot-100/"
	hotListingPath  = "/hot-100"
)

// ParseBase validates a site origin and returns it as a URL.
func ParseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

// Resolve turns a link found on a page into an absolute URL against base.
// Absolute links are returned unchanged apart from whitespace trimming.
func Resolve(base *url.URL, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty link")
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", ref, err)
	}
	return base.ResolveReference(parsed).String(), nil
}

// ArchiveRootURL returns the archive index page for the given origin.
func ArchiveRootURL(base *url.URL) string {
	return base.JoinPath(ArchiveRootPath).String()
}

// HotListingURL returns the per-year Hot 100 listing for an archive URI.
func HotListingURL(archiveURI string) string {
	return strings.TrimRight(archiveURI, "/") + hotListingPath
}

// ChartURL returns the chart page for a publication date such as 1958-08-04.
func ChartURL(base *url.URL, date string) string {
	return base.JoinPath(ChartPathPrefix, date).String()
}

// ChartDateFromURL extracts the publication date segment of a chart URL.
// It returns "" when the URL is not a Hot 100 chart page.
func ChartDateFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.Path, "/")
	if !strings.HasPrefix(p, ChartPathPrefix) {
		return ""
	}
	return path.Base(p)
}

package urlnorm

import (
	"net/url"
	"strings"
)

// Normalize canonicalizes a URL for deduplication comparison: the whole URL is
// lowercased, a single trailing slash is stripped from the path (unless the
// path is exactly "/"), and an explicit default port is removed (:80 for http,
// :443 for https). Query strings and fragments are preserved verbatim, so URLs
// differing only in query or fragment are treated as distinct.
//
// Malformed input is returned unchanged; callers must tolerate normalization
// being a no-op.
func Normalize(raw string) string {
	lowered := strings.ToLower(raw)

	u, err := url.Parse(lowered)
	if err != nil {
		return raw
	}

	if port := u.Port(); port != "" {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = u.Hostname()
		}
	}

	if strings.HasSuffix(u.Path, "/") && u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

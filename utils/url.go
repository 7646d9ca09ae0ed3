package utils

import (
	"net/url"
	"strings"
)

func DropUtmMarkers(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return urlStr // return original URL in case of error
	}

	queryParams := u.Query()
	for key := range queryParams {
		if strings.HasPrefix(key, "utm_") {
			delete(queryParams, key)
		}
	}

	u.RawQuery = queryParams.Encode()

	return u.String()
}

// HasScheme reports whether s starts with http:// or https://.
func HasScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Origin returns scheme://host/ of rawURL.
func Origin(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// AbsoluteURL resolves ref against the origin of root. References that
// already carry a host are returned untouched.
func AbsoluteURL(root string, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.Host != "" {
		return ref
	}

	origin, err := Origin(root)
	if err != nil {
		return ref
	}
	return origin.ResolveReference(r).String()
}

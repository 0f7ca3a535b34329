package web

import (
	"net/url"
	"strings"

	"feedthread/internal/domain"
	"feedthread/internal/extract"
)

// tweetHosts are the hosts whose status URLs are accepted.
var tweetHosts = map[string]bool{
	"twitter.com":        true,
	"x.com":              true,
	"mobile.twitter.com": true,
	"mobile.x.com":       true,
}

// ParseTweetURL extracts the username and tweet ID from a Twitter/X status
// URL. Query parameters and trailing /photo/N style segments are ignored.
// Returns domain.ErrInvalidURL if the URL format is invalid.
func ParseTweetURL(rawURL string) (username string, tweetID string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", "", domain.ErrInvalidURL
	}
	if !tweetHosts[strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")] {
		return "", "", domain.ErrInvalidURL
	}

	username, tweetID = extract.StatusFromURL(u.Path)
	if username == "" || tweetID == "" {
		return "", "", domain.ErrInvalidURL
	}
	return username, tweetID, nil
}

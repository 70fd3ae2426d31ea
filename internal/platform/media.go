package platform

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Shortcodes are base64url-style encodings of the numeric media PK.
const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// mediaIDFromURL extracts the post shortcode from a public URL and
// decodes it into the numeric media identifier. Pure computation; the
// platform never needs to be contacted for resolution.
func mediaIDFromURL(postURL string) (string, error) {
	code, err := shortcodeFromURL(postURL)
	if err != nil {
		return "", err
	}
	pk, err := mediaPKFromShortcode(code)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(pk, 10), nil
}

func shortcodeFromURL(postURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(postURL))
	if err != nil {
		return "", fmt.Errorf("parse post url: %w", err)
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		switch seg {
		case "p", "reel", "reels", "tv":
			if i+1 < len(segs) && segs[i+1] != "" {
				return segs[i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no media shortcode in url %q", postURL)
}

func mediaPKFromShortcode(code string) (int64, error) {
	// Codes longer than 11 characters carry a share suffix after the PK.
	if len(code) > 11 {
		code = code[:11]
	}
	var pk int64
	for _, c := range code {
		idx := strings.IndexRune(shortcodeAlphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("invalid character %q in shortcode %q", c, code)
		}
		pk = pk*64 + int64(idx)
	}
	if pk == 0 {
		return 0, fmt.Errorf("empty shortcode")
	}
	return pk, nil
}

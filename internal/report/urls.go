package report

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"social-report/pkg/types"
)

// NoLink is returned when a record carries nothing that can be turned into a URL.
const NoLink = "#"

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var (
	// numericInstagramURL matches post and reel links whose id segment is all digits
	numericInstagramURL = regexp.MustCompile(`instagram\.com/(?:p|reel)/(\d+)(?:[/?#]|$)`)
	allDigits           = regexp.MustCompile(`^\d+$`)

	knownHosts = []string{"facebook.com", "instagram.com", "twitter.com", "x.com"}
	radix      = big.NewInt(64)
)

// Shortcode encodes a numeric Instagram media id in positional base 64,
// most significant digit first. Zero encodes to the empty string.
func Shortcode(id *big.Int) string {
	num := new(big.Int).Set(id)
	rem := new(big.Int)

	var out []byte
	for num.Sign() > 0 {
		num.QuoRem(num, radix, rem)
		out = append(out, shortcodeAlphabet[rem.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// ShortcodeFromDecimal encodes a decimal id string. ok is false when the
// string is not a non-negative integer.
func ShortcodeFromDecimal(id string) (string, bool) {
	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Sign() < 0 {
		return "", false
	}
	return Shortcode(n), true
}

// DecodeShortcode is the inverse of Shortcode.
func DecodeShortcode(code string) (*big.Int, error) {
	n := new(big.Int)
	for i := 0; i < len(code); i++ {
		v := strings.IndexByte(shortcodeAlphabet, code[i])
		if v < 0 {
			return nil, fmt.Errorf("invalid shortcode character %q at %d", code[i], i)
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(v)))
	}
	return n, nil
}

func instagramReelURL(numericID string) (string, bool) {
	code, ok := ShortcodeFromDecimal(numericID)
	if !ok {
		return "", false
	}
	return "https://www.instagram.com/reel/" + code + "/", true
}

// FixPostURL rewrites Instagram links that carry a numeric media id into
// their canonical shortcode form. Other URLs are returned unchanged.
func FixPostURL(url string) string {
	m := numericInstagramURL.FindStringSubmatch(url)
	if m == nil {
		return url
	}
	if fixed, ok := instagramReelURL(m[1]); ok {
		return fixed
	}
	return url
}

// PostIDURL builds a browsable URL from a "Post ID" cell, or NoLink.
func PostIDURL(postID string) string {
	id := strings.TrimSpace(postID)
	if id == "" {
		return NoLink
	}

	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	if strings.HasPrefix(id, "www.") {
		return "https://" + id
	}
	for _, host := range knownHosts {
		if strings.Contains(id, host) {
			return "https://" + id
		}
	}
	if allDigits.MatchString(id) {
		if url, ok := instagramReelURL(id); ok {
			return url
		}
	}
	return NoLink
}

// ResolveURL picks the display link for a record: a present "Post URL" wins,
// otherwise the link is derived from "Post ID".
func ResolveURL(r types.RawPostRecord) string {
	if u := strings.TrimSpace(r.PostURL); u != "" {
		return FixPostURL(u)
	}
	return PostIDURL(r.PostID)
}

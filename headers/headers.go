// Package headers parses the small set of HTTP response headers the
// pipeline reasons about -- Retry-After, Link (RFC 5988), and the
// vendor family of rate-limit headers -- into typed values with strict
// range checks, tolerating whatever a given provider leaves out.
package headers

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter parses a Retry-After header value, which per RFC 9110
// is either a delay in seconds or an HTTP-date. It returns false when
// the header is absent, empty, or unparseable by either form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}

	return 0, false
}

// Link is one parsed member of an RFC 5988 Link header.
type Link struct {
	URL string
	Rel string
}

// ParseLink parses a Link header value into its member links. Malformed
// members are skipped rather than failing the whole parse, since a
// provider's one bad link should not hide the others.
func ParseLink(value string) []Link {
	if value == "" {
		return nil
	}

	var links []Link
	for _, member := range splitLinkMembers(value) {
		link, ok := parseLinkMember(member)
		if ok {
			links = append(links, link)
		}
	}
	return links
}

// splitLinkMembers splits on top-level commas, i.e. commas outside the
// <...> URL reference and outside quoted parameter values.
func splitLinkMembers(value string) []string {
	var members []string
	depth := 0
	inQuotes := false
	start := 0

	for i, r := range value {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case '"':
			inQuotes = !inQuotes
		case ',':
			if depth == 0 && !inQuotes {
				members = append(members, value[start:i])
				start = i + 1
			}
		}
	}
	members = append(members, value[start:])
	return members
}

// parseLinkMember parses a single "<url>; rel=\"next\"" member.
func parseLinkMember(member string) (Link, bool) {
	member = strings.TrimSpace(member)

	urlStart := strings.Index(member, "<")
	urlEnd := strings.Index(member, ">")
	if urlStart == -1 || urlEnd == -1 || urlEnd <= urlStart {
		return Link{}, false
	}

	link := Link{URL: member[urlStart+1 : urlEnd]}

	for _, param := range strings.Split(member[urlEnd+1:], ";") {
		param = strings.TrimSpace(param)
		key, val, found := strings.Cut(param, "=")
		if !found || strings.TrimSpace(key) != "rel" {
			continue
		}
		link.Rel = strings.Trim(strings.TrimSpace(val), `"`)
	}

	if link.URL == "" {
		return Link{}, false
	}
	return link, true
}

// FindRel returns the URL for the first link whose Rel matches rel.
func FindRel(links []Link, rel string) (string, bool) {
	for _, l := range links {
		if l.Rel == rel {
			return l.URL, true
		}
	}
	return "", false
}

// RateLimitHeaders is the parsed form of the common rate-limit header
// trio (limit, remaining, reset), tolerant of whichever vendor spelling
// a provider uses.
type RateLimitHeaders struct {
	Limit     int
	Remaining int
	Reset     time.Time
	HasLimit  bool
}

// limitHeaderNames, remainingHeaderNames, and resetHeaderNames list the
// vendor spellings checked in order; the first present, valid value
// wins.
var (
	limitHeaderNames     = []string{"X-RateLimit-Limit", "RateLimit-Limit", "X-Rate-Limit-Limit"}
	remainingHeaderNames = []string{"X-RateLimit-Remaining", "RateLimit-Remaining", "X-Rate-Limit-Remaining"}
	resetHeaderNames     = []string{"X-RateLimit-Reset", "RateLimit-Reset", "X-Rate-Limit-Reset"}
)

// ParseRateLimitHeaders extracts rate-limit information from an HTTP
// header set. Values that are missing or violate the "limit >= 0,
// 0 <= remaining <= limit" invariant yield HasLimit=false so the caller
// falls back to its own defaults rather than trusting a malformed
// provider response.
func ParseRateLimitHeaders(h http.Header) RateLimitHeaders {
	limit, limitOK := firstInt(h, limitHeaderNames)
	remaining, remainingOK := firstInt(h, remainingHeaderNames)
	reset, resetOK := firstResetTime(h, resetHeaderNames)

	if !limitOK || !remainingOK || limit < 0 || remaining < 0 || remaining > limit {
		return RateLimitHeaders{}
	}

	if !resetOK {
		reset = time.Now().Add(time.Hour)
	}

	return RateLimitHeaders{
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
		HasLimit:  true,
	}
}

func firstInt(h http.Header, names []string) (int, bool) {
	for _, name := range names {
		v := h.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// firstResetTime accepts either a Unix epoch seconds value or seconds
// until reset, matching the two conventions providers actually use.
func firstResetTime(h http.Header, names []string) (time.Time, bool) {
	for _, name := range names {
		v := h.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		// Values beyond roughly year 2001 in epoch seconds are treated
		// as an absolute timestamp; smaller values are a relative delta.
		const epochThreshold = 1_000_000_000
		if n > epochThreshold {
			return time.Unix(n, 0), true
		}
		return time.Now().Add(time.Duration(n) * time.Second), true
	}
	return time.Time{}, false
}

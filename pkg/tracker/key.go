package tracker

import (
	"regexp"
	"strings"
)

// EndpointKey is the canonical identity of one endpoint: an upper-case HTTP
// verb plus a normalized path. All aggregation is keyed by it.
type EndpointKey struct {
	Method string
	Path   string
}

// String renders the key in "METHOD /path" form.
func (k EndpointKey) String() string {
	return k.Method + " " + k.Path
}

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// NormalizeEndpoint derives the EndpointKey for a raw method and path.
// Numeric path segments collapse to :id and UUID segments to :uuid, so
// /users/42 and /users/97 aggregate under one key. When includeQuery is
// false everything from the first '?' onward is stripped first.
// Normalizing an already-normalized key returns it unchanged, and malformed
// input degrades to best-effort substitution rather than an error.
func NormalizeEndpoint(method, path string, includeQuery bool) EndpointKey {
	if !includeQuery {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case numericSegment.MatchString(seg):
			segments[i] = ":id"
		case len(seg) == 36 && uuidSegment.MatchString(seg):
			segments[i] = ":uuid"
		}
	}

	return EndpointKey{
		Method: strings.ToUpper(method),
		Path:   strings.Join(segments, "/"),
	}
}

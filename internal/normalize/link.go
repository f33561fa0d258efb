// ABOUTME: Best-link resolution as an ordered chain of resolvers
// ABOUTME: DOI, then record URL, then caller fallback, then the record's alternate page

package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/harper/pubfeed/internal/models"
)

const (
	doiBase = "https://doi.org/"

	// Characters left unescaped besides letters, digits and "_.-~".
	doiSafe  = "/:()._-"
	pathSafe = "/:@&=+$,-.%"

	upperhex = "0123456789ABCDEF"
)

var (
	doiNoise = regexp.MustCompile(`(?i)^(?:\s|doi:|/)+`)
	doiURL   = regexp.MustCompile(`(?i)^https?://(?:dx\.)?doi\.org/`)
	httpURL  = regexp.MustCompile(`(?i)^https?://`)
)

// LinkResolver derives a candidate link from a record, or "".
type LinkResolver struct {
	Name    string
	Resolve func(rec models.RawRecord) string
}

// DOIResolver links to the DOI resolver for the record's DOI.
func DOIResolver() LinkResolver {
	return LinkResolver{Name: "doi", Resolve: func(rec models.RawRecord) string {
		if rec.Data == nil {
			return ""
		}
		return DOILink(rec.Data.DOI)
	}}
}

// URLResolver uses the record's own http(s) URL.
func URLResolver() LinkResolver {
	return LinkResolver{Name: "url", Resolve: func(rec models.RawRecord) string {
		if rec.Data == nil {
			return ""
		}
		return HTTPLink(rec.Data.URL)
	}}
}

// FallbackResolver returns a fixed link, typically the collection's public page.
func FallbackResolver(fallback string) LinkResolver {
	return LinkResolver{Name: "fallback", Resolve: func(models.RawRecord) string {
		return strings.TrimSpace(fallback)
	}}
}

// AlternateResolver uses the record's page on the remote service.
func AlternateResolver() LinkResolver {
	return LinkResolver{Name: "alternate", Resolve: func(rec models.RawRecord) string {
		return HTTPLink(rec.AlternateHref())
	}}
}

// DefaultResolvers is the standard resolution order.
func DefaultResolvers(fallback string) []LinkResolver {
	return []LinkResolver{
		DOIResolver(),
		URLResolver(),
		FallbackResolver(fallback),
		AlternateResolver(),
	}
}

// ResolveLink returns the first candidate that is an absolute URL with a host,
// and the name of the resolver that produced it. Both are "" when none match.
func ResolveLink(rec models.RawRecord, resolvers []LinkResolver) (link, source string) {
	for _, r := range resolvers {
		candidate := r.Resolve(rec)
		if candidate == "" {
			continue
		}
		if isAbsoluteURL(candidate) {
			return candidate, r.Name
		}
	}
	return "", ""
}

// DOILink turns a raw DOI field into a doi.org URL. Leading "doi:", slash and
// whitespace noise is discarded; an existing doi.org URL is re-encoded.
func DOILink(raw string) string {
	doi := strings.TrimSpace(doiNoise.ReplaceAllString(raw, ""))
	if doi == "" {
		return ""
	}
	if doiURL.MatchString(doi) {
		u, err := url.Parse(doi)
		if err != nil || u.Host == "" {
			return ""
		}
		return strings.ToLower(u.Scheme) + "://" + u.Host + quote(u.Path, doiSafe)
	}
	return doiBase + quote(doi, doiSafe)
}

// HTTPLink re-encodes the path of an http(s) URL. Anything else yields "".
func HTTPLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if !httpURL.MatchString(raw) {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	path := u.RawPath
	if path == "" {
		path = u.Path
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	if u.User != nil {
		b.WriteString(u.User.String())
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	b.WriteString(quote(path, pathSafe))
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// quote percent-encodes every byte of s except ASCII letters, digits, "_.-~"
// and the bytes listed in safe.
func quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '_' || c == '.' || c == '-' || c == '~'
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

package core

import (
	"regexp"
	"strings"
)

var (
	slugBrackets = regexp.MustCompile(`\(.*\)`)
	slugSuffix   = regexp.MustCompile(` - .+`)
	slugInvalid  = regexp.MustCompile(`[^a-z\d]`)
	slugDashes   = regexp.MustCompile(`-+`)
	slugEdgeDash = regexp.MustCompile(`^-|-$`)
)

// SlugFromWebsiteURL returns the text after the final "/" of a project page
// URL. ok is false when the URL has no "/" at all.
func SlugFromWebsiteURL(websiteURL string) (slug string, ok bool) {
	i := strings.LastIndex(websiteURL, "/")
	if i < 0 {
		return "", false
	}
	return websiteURL[i+1:], true
}

// SlugifyName builds a slug from a display name, for projects whose page
// URL does not end in one.
func SlugifyName(name string) string {
	s := strings.ToLower(name)
	s = slugBrackets.ReplaceAllString(s, "")
	s = slugSuffix.ReplaceAllString(s, "")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return slugEdgeDash.ReplaceAllString(s, "")
}

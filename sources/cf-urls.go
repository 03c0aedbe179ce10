package sources

import (
	"strings"
)

const (
	edgeCDN  = "edge.forgecdn"
	mediaCDN = "media.forgecdn"
)

var pathEscaper = strings.NewReplacer("+", "%2B", " ", "%20")

// RewriteDownloadURL sends downloads from the short-lived edge CDN to the
// stable media CDN. The media host rejects literal "+" and spaces, so those
// are percent-encoded as well. URLs on other hosts are returned unchanged.
func RewriteDownloadURL(downloadURL string) string {
	if !strings.Contains(downloadURL, edgeCDN) {
		return downloadURL
	}
	rewritten := strings.ReplaceAll(downloadURL, edgeCDN, mediaCDN)
	return pathEscaper.Replace(rewritten)
}

func cleanDownloadURL(body string) string {
	return strings.Trim(strings.TrimSpace(body), `"`)
}

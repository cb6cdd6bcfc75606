package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/pkg/contracts/domain"
)

// htmlMarkers are lowercase prefixes of an HTML document
var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
	[]byte("<?xml"),
}

// looksLikeHTML reports whether a payload is an HTML page rather than data
func looksLikeHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.TrimLeft(body, " \t\r\n\ufeff")
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.ToLower(head)
	for _, m := range htmlMarkers {
		if bytes.HasPrefix(head, m) {
			return true
		}
	}
	return false
}

// htmlTitle extracts the document title of an HTML error page
func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return strings.Join(strings.Fields(title), " ")
}

// classifyPayload rejects empty and HTML payloads. An HTML page in place of
// delimited text means the source is not publicly readable.
func classifyPayload(key domain.DatasetKey, tier domain.SourceTier, body []byte, contentType string) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return sourceError(key, tier, KindEmpty, fmt.Errorf("empty response body"))
	}
	if looksLikeHTML(body, contentType) {
		detail := "received an HTML page instead of data"
		if title := htmlTitle(body); title != "" {
			detail = fmt.Sprintf("%s (page title %q)", detail, title)
		}
		return sourceError(key, tier, KindNotPublic, fmt.Errorf("%s", detail))
	}
	return nil
}

// acceptRows applies the common acceptance rule: at least one row with at
// least one populated cell. Empty rows are dropped.
func acceptRows(key domain.DatasetKey, tier domain.SourceTier, rows []domain.Row) ([]domain.Row, error) {
	out := make([]domain.Row, 0, len(rows))
	for _, r := range rows {
		if r.Populated() {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, sourceError(key, tier, KindEmpty, fmt.Errorf("no populated rows"))
	}
	return out, nil
}

package normalizer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// decodeHTMLEntries handles sources whose endpoints serve an HTML list
// instead of JSON. Every anchor with non-empty text becomes a candidate
// entry; relative or empty hrefs still yield a titled entry because title is
// the only required capability.
func decodeHTMLEntries(raw []byte) ([]entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var entries []entry
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		fields := map[string]any{"title": title}
		if href, ok := sel.Attr("href"); ok {
			href = strings.TrimSpace(href)
			if strings.HasPrefix(href, "http") {
				fields["url"] = href
			}
		}
		entries = append(entries, entry{fields: fields})
	})
	return entries, nil
}

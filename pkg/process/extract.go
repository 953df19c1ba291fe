package process

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

// referenceAttrs maps each scanned element to the attribute carrying its resource reference
var referenceAttrs = map[string]string{
	"a":      "href",
	"link":   "href", // Stylesheets and generic links
	"img":    "src",
	"script": "src",
	"iframe": "src",
	"source": "src",
	"audio":  "src",
	"video":  "src",
}

// referenceSelector matches only elements that carry the expected attribute
var referenceSelector = buildReferenceSelector()

func buildReferenceSelector() string {
	parts := make([]string, 0, len(referenceAttrs))
	for tag, attr := range referenceAttrs {
		parts = append(parts, fmt.Sprintf("%s[%s]", tag, attr))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// ExtractReferences returns the distinct non-empty resource references in markup.
// Parsing is tolerant: malformed markup yields whatever references could be recovered.
// The result is sorted; order carries no meaning.
func ExtractReferences(markup string) []string {
	refs, _ := ExtractReferencesFromReader(strings.NewReader(markup))
	return refs
}

// ExtractReferencesFromReader is ExtractReferences over a stream.
// The only error is a failure reading r; refs is then empty.
func ExtractReferencesFromReader(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return []string{}, fmt.Errorf("%w: reading HTML: %w", utils.ErrParsing, err)
	}
	return ExtractFromDocument(doc), nil
}

// ExtractFromDocument collects references from an already-parsed document.
// Duplicates merge on the raw string; no resolution happens here.
func ExtractFromDocument(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	doc.Find(referenceSelector).Each(func(_ int, el *goquery.Selection) {
		attr, ok := referenceAttrs[goquery.NodeName(el)]
		if !ok {
			return
		}
		val, exists := el.Attr(attr)
		if !exists {
			return
		}
		val = strings.TrimSpace(val)
		if val == "" {
			return
		}
		seen[val] = struct{}{}
	})

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

package classify

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/Sriram-PR/res-scraper/pkg/models"
)

// Fixed extension table; keys are lowercase without the leading dot
var extensionCategories = map[string]models.Category{
	// Images
	"jpg": models.CategoryImage, "jpeg": models.CategoryImage, "png": models.CategoryImage,
	"gif": models.CategoryImage, "bmp": models.CategoryImage, "svg": models.CategoryImage,
	"webp": models.CategoryImage,
	// Audio/video
	"mp3": models.CategoryMedia, "mp4": models.CategoryMedia, "avi": models.CategoryMedia,
	"mov": models.CategoryMedia, "wmv": models.CategoryMedia, "flv": models.CategoryMedia,
	"mkv": models.CategoryMedia,
	// Documents
	"txt": models.CategoryDocument, "pdf": models.CategoryDocument, "doc": models.CategoryDocument,
	"docx": models.CategoryDocument, "xls": models.CategoryDocument, "xlsx": models.CategoryDocument,
	"ppt": models.CategoryDocument, "pptx": models.CategoryDocument,
}

// ClassifyByExtension maps a URL to a category using the lowercase extension of the
// last path segment. Query and fragment are ignored. Total over all inputs: anything
// unparseable or without a known extension is Other.
func ClassifyByExtension(absoluteURL string) models.Category {
	ext := Extension(absoluteURL)
	if cat, ok := extensionCategories[ext]; ok {
		return cat
	}
	return models.CategoryOther
}

// Extension returns the lowercase extension (no dot) of the URL's last path segment, or ""
func Extension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := parsed.Path
	if p == "" {
		p = parsed.Opaque
	}
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}

	base := path.Base(p)
	// Leading-dot names like ".bashrc" have no extension
	idx := strings.LastIndex(base, ".")
	if idx <= 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// Extensions lists the extensions mapped to c, sorted. Other has none.
func Extensions(c models.Category) []string {
	exts := make([]string, 0)
	for ext, cat := range extensionCategories {
		if cat == c {
			exts = append(exts, ext)
		}
	}
	sort.Strings(exts)
	return exts
}

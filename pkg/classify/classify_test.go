package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sriram-PR/res-scraper/pkg/models"
)

func TestClassifyByExtension_KnownExtensions(t *testing.T) {
	table := map[models.Category][]string{
		models.CategoryImage:    {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp"},
		models.CategoryMedia:    {"mp3", "mp4", "avi", "mov", "wmv", "flv", "mkv"},
		models.CategoryDocument: {"txt", "pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx"},
	}
	for want, exts := range table {
		for _, ext := range exts {
			lower := "https://example.com/files/name." + ext
			upper := "https://example.com/files/name." + strings.ToUpper(ext)
			assert.Equal(t, want, ClassifyByExtension(lower), lower)
			assert.Equal(t, want, ClassifyByExtension(upper), upper)
		}
	}
}

func TestClassifyByExtension_Other(t *testing.T) {
	inputs := []string{
		"https://example.com/",
		"https://example.com",
		"https://example.com/page",
		"https://example.com/app.js",
		"https://example.com/style.css",
		"https://example.com/index.html",
		"https://example.com/archive.tar.gz",
		"https://example.com/dir.png/",
		"https://example.com/.png",
		"https://example.com/file.",
		"http://[::1",
		"",
		"not a url at all",
	}
	for _, in := range inputs {
		assert.Equal(t, models.CategoryOther, ClassifyByExtension(in), in)
	}
}

func TestClassifyByExtension_IgnoresQueryAndFragment(t *testing.T) {
	assert.Equal(t, models.CategoryImage, ClassifyByExtension("https://example.com/cat.png?size=large"))
	assert.Equal(t, models.CategoryDocument, ClassifyByExtension("https://example.com/report.PDF#page=2"))
	assert.Equal(t, models.CategoryOther, ClassifyByExtension("https://example.com/download?file=cat.png"))
	assert.Equal(t, models.CategoryOther, ClassifyByExtension("https://example.com/page#cat.png"))
}

func TestClassifyByExtension_JPGCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		ClassifyByExtension("https://example.com/a.jpg"),
		ClassifyByExtension("https://example.com/a.JPG"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "png", Extension("https://example.com/a/b/Cat.PNG"))
	assert.Equal(t, "gz", Extension("https://example.com/a.tar.gz"))
	assert.Equal(t, "", Extension("https://example.com/a/"))
	assert.Equal(t, "", Extension("https://example.com/.hidden"))
	assert.Equal(t, "pdf", Extension("https://example.com/my%20report.pdf"))
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{"bmp", "gif", "jpeg", "jpg", "png", "svg", "webp"}, Extensions(models.CategoryImage))
	assert.Len(t, Extensions(models.CategoryDocument), 8)
	assert.Len(t, Extensions(models.CategoryMedia), 7)
	assert.Empty(t, Extensions(models.CategoryOther))
}

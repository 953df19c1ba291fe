package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFilenameBytes caps a sanitized name, extension included
const MaxFilenameBytes = 100

// Extensions longer than this are treated as part of the stem when shortening
const maxKeptExtBytes = 16

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	underscoreRuns      = regexp.MustCompile(`_+`)
)

// SanitizeFilename makes name safe to use as a single path component.
// Unsafe characters become underscores. Names over MaxFilenameBytes are
// shortened on a rune boundary, keeping the extension so the saved file
// still opens with the right program.
func SanitizeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(name, "_")
	cleaned = underscoreRuns.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(cleaned, "_ ")

	if len(cleaned) > MaxFilenameBytes {
		cleaned = shortenKeepingExt(cleaned, MaxFilenameBytes)
	}
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

func shortenKeepingExt(name string, limit int) string {
	ext := filepath.Ext(name)
	if len(ext) > maxKeptExtBytes || len(ext) == len(name) {
		ext = ""
	}
	stem := strings.Trim(truncateRunes(strings.TrimSuffix(name, ext), limit-len(ext)), "_ .")
	if stem == "" {
		return strings.Trim(truncateRunes(name, limit), "_ ")
	}
	return stem + ext
}

// truncateRunes cuts s to at most limit bytes without splitting a rune
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

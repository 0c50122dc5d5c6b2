// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// normalizeTitle puts a page or redirect title into NFC normal form and
// collapses the underscore/space distinction that MediaWiki treats as
// equivalent when matching titles.
func normalizeTitle(title string) string {
	return strings.ReplaceAll(norm.NFC.String(title), "_", " ")
}

// titleCaseFirst upper-cases the first code point of a title and leaves the
// rest untouched, matching MediaWiki's convention that the first letter of
// an article title is case-insensitive while the remainder is not. Used by
// the redirect resolver as a second lookup attempt when the raw link target
// does not resolve directly.
func titleCaseFirst(title string) string {
	if title == "" {
		return title
	}
	r, size := utf8.DecodeRuneInString(title)
	if r == utf8.RuneError {
		return title
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return title
	}
	var buf strings.Builder
	buf.Grow(len(title))
	buf.WriteRune(upper)
	buf.WriteString(title[size:])
	return buf.String()
}

// isFileOrImageLink reports whether a raw (unresolved) link target refers to
// the File: or Image: namespace, which the redirect resolver discards
// silently rather than counting as a bad link.
func isFileOrImageLink(raw string) bool {
	return hasCIPrefix(raw, "File:") || hasCIPrefix(raw, "Image:")
}

func hasCIPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

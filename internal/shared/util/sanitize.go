package util

import (
	"strings"
	"unicode"
)

const defaultDisplayName = "document.pdf"

// DisplayFileName reduces an uploaded file name to its final path element
// with control characters removed. Browsers and terminal clients both send
// names of the form "C:\fakepath\report.pdf" or "dir/report.pdf".
func DisplayFileName(name string) string {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return defaultDisplayName
	}
	return s
}

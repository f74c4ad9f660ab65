package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLen caps sanitized names, in runes.
const MaxFileNameLen = 120

// ErrInvalidFileName is returned for names that are empty or try to traverse.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns an uploaded document name into a single path
// segment: separators become "_", control characters are dropped, and long
// names are shortened while keeping their extension.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if utf8.RuneCountInString(s) > MaxFileNameLen {
		ext := path.Ext(s)
		if utf8.RuneCountInString(ext) > 16 {
			ext = ""
		}
		base := []rune(strings.TrimSuffix(s, ext))
		s = string(base[:MaxFileNameLen-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}

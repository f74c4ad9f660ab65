// Package object archives uploaded review documents.
package object

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"legalreview-backend/internal/shared/util"
)

// ErrNotFound is returned by Open for unknown keys.
var ErrNotFound = errors.New("object not found")

// Object describes a stored upload.
type Object struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Store archives document uploads under an owner namespace.
type Store interface {
	Put(ctx context.Context, owner, fileName, contentType string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewKey builds "<owner hash>/<yyyy>/<mm>/<dd>/<random>_<file>".
func NewKey(owner, fileName string, now time.Time) (string, error) {
	clean, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	day := now.UTC().Format("2006/01/02")
	return path.Join(util.HashOwner(owner), day, randomID()+"_"+clean), nil
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// OwnedBy reports whether key lives in owner's namespace.
func OwnedBy(key, owner string) bool {
	return owner != "" && strings.HasPrefix(key, util.HashOwner(owner)+"/")
}

// FileName recovers the sanitized file name from a key built by NewKey.
func FileName(key string) string {
	base := path.Base(key)
	if _, name, ok := strings.Cut(base, "_"); ok && name != "" {
		return name
	}
	return base
}

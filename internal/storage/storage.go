// Package storage keeps request artifacts: the images a client sent, stored under a
// relative name such as "received_images/request_<id>.png".
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrArtifactNotFound is returned by Load when no artifact has the given name.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore saves and loads opaque blobs by relative name.
type ArtifactStore interface {
	// Save stores data and returns where it ended up (a file path or blob URL).
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
	Backend() string
}

// cleanName rejects absolute names and names escaping the store root.
func cleanName(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "/") || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("invalid artifact name: " + name)
	}
	return cleaned, nil
}

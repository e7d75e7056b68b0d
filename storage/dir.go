// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gogpu/arprobe"
	"github.com/gogpu/arprobe/ar"
)

// DirPhotoStore stores photos as files in a local directory and returns
// file:// URIs.
type DirPhotoStore struct {
	dir string
}

var _ arprobe.PhotoStore = (*DirPhotoStore)(nil)

// NewDirPhotoStore creates dir if needed and returns a store writing to it.
func NewDirPhotoStore(dir string) (*DirPhotoStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("photo dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("photo dir: %w", err)
	}
	return &DirPhotoStore{dir: abs}, nil
}

// Dir returns the absolute directory photos are written to.
func (s *DirPhotoStore) Dir() string { return s.dir }

// StorePhoto encodes img and writes it to a new file named after the
// capture kind and a random UUID.
func (s *DirPhotoStore) StorePhoto(ctx context.Context, img ar.CameraImage, status arprobe.CaptureStatus) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := EncodePhoto(img, status)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, PhotoName(status))

	// Write to a temp file and rename so readers never see partial photos.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // photos are not secret
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write photo: %w", err)
	}
	arprobe.Logger().Debug("storage: photo written", "path", path, "bytes", len(data))
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

// Load reads and decodes the photo at a URI returned by StorePhoto.
func (s *DirPhotoStore) Load(uri string) (*Photo, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return nil, fmt.Errorf("load photo %q: not a file URI", uri)
	}
	path := filepath.FromSlash(u.Path)
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return nil, fmt.Errorf("load photo %q: outside %s", uri, s.dir)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path checked against the store directory
	if err != nil {
		return nil, fmt.Errorf("load photo: %w", err)
	}
	return DecodePhoto(data)
}

// PhotoName returns a new unique object name for a photo of the given
// capture kind, for example "all-<uuid>.arphoto.zst".
func PhotoName(status arprobe.CaptureStatus) string {
	return status.String() + "-" + uuid.NewString() + PhotoExt
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/gogpu/arprobe"
	"github.com/gogpu/arprobe/ar"
	"github.com/gogpu/arprobe/storage"
)

// objectAPI is the subset of *minio.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// PhotoStore implements arprobe.PhotoStore on MinIO and returns
// s3://bucket/key URIs.
type PhotoStore struct {
	client objectAPI
	bucket string
	prefix string
}

var _ arprobe.PhotoStore = (*PhotoStore)(nil)

// NewPhotoStore creates a photo store.
// bucket is the MinIO bucket name.
// rootPrefix is prepended to all keys (e.g. "photos/").
func NewPhotoStore(client *minio.Client, bucket, rootPrefix string) *PhotoStore {
	return newPhotoStore(client, bucket, rootPrefix)
}

func newPhotoStore(client objectAPI, bucket, rootPrefix string) *PhotoStore {
	return &PhotoStore{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *PhotoStore) key(name string) string {
	return path.Join(s.prefix, name)
}

// StorePhoto encodes img and uploads it under a new UUID key.
func (s *PhotoStore) StorePhoto(ctx context.Context, img ar.CameraImage, status arprobe.CaptureStatus) (string, error) {
	data, err := storage.EncodePhoto(img, status)
	if err != nil {
		return "", err
	}
	key := s.key(storage.PhotoName(status))
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zstd",
		UserMetadata: map[string]string{
			"capture": status.String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put photo %s: %w", key, err)
	}
	arprobe.Logger().Debug("storage/minio: photo uploaded", "bucket", s.bucket, "key", key, "bytes", len(data))
	return "s3://" + s.bucket + "/" + key, nil
}

// Load downloads and decodes the photo stored under key.
func (s *PhotoStore) Load(ctx context.Context, key string) (*storage.Photo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get photo %s: %w", key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read photo %s: %w", key, err)
	}
	return storage.DecodePhoto(data)
}

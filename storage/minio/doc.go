// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package minio stores captured photos in MinIO or any S3-compatible
// object storage.
//
// Usage:
//
//	client, err := minio.New(endpoint, &minio.Options{
//		Creds: credentials.NewStaticV4(accessKey, secretKey, ""),
//	})
//	photos := storageminio.NewPhotoStore(client, "arprobe", "photos/")
//	capturer := arprobe.NewCapturer(repo, photos)
package minio

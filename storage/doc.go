// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package storage provides persistence for captured colors and photos.
//
// MemoryRepository implements arprobe.Repository in memory and answers the
// history queries a color browser needs. DirPhotoStore implements
// arprobe.PhotoStore on a local directory. Photos are stored as a small
// raw container (see EncodePhoto) compressed with zstd; the object-store
// variant lives in storage/minio.
//
// Usage:
//
//	repo := storage.NewMemoryRepository()
//	photos, err := storage.NewDirPhotoStore("photos")
//	capturer := arprobe.NewCapturer(repo, photos)
package storage

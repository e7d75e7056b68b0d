// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/arprobe"
)

// ErrNotFound is returned when a referenced palette or photo does not exist.
var ErrNotFound = errors.New("storage: not found")

// PaletteWithColors is a palette together with its colors in insertion
// order.
type PaletteWithColors struct {
	Palette arprobe.PaletteRecord
	Colors  []arprobe.ColorRecord
}

// MemoryRepository is an in-memory arprobe.Repository. Ids start at 1 and
// increase per table. It is safe for concurrent use.
type MemoryRepository struct {
	mu       sync.RWMutex
	photos   []arprobe.PhotoRecord
	palettes []arprobe.PaletteRecord
	colors   []arprobe.ColorRecord
}

var _ arprobe.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// InsertPhoto stores p under a new id and returns it. p.ID is ignored.
func (r *MemoryRepository) InsertPhoto(ctx context.Context, p arprobe.PhotoRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = int64(len(r.photos) + 1)
	r.photos = append(r.photos, p)
	return p.ID, nil
}

// InsertPalette stores p under a new id and returns it. p.ID is ignored.
func (r *MemoryRepository) InsertPalette(ctx context.Context, p arprobe.PaletteRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = int64(len(r.palettes) + 1)
	r.palettes = append(r.palettes, p)
	return p.ID, nil
}

// InsertColor stores c under a new id and returns it. A non-zero PaletteID
// or PhotoID must reference an existing record.
func (r *MemoryRepository) InsertColor(ctx context.Context, c arprobe.ColorRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.PaletteID != 0 && !validID(c.PaletteID, len(r.palettes)) {
		return 0, fmt.Errorf("insert color: palette %d: %w", c.PaletteID, ErrNotFound)
	}
	if c.PhotoID != 0 && !validID(c.PhotoID, len(r.photos)) {
		return 0, fmt.Errorf("insert color: photo %d: %w", c.PhotoID, ErrNotFound)
	}
	c.ID = int64(len(r.colors) + 1)
	r.colors = append(r.colors, c)
	return c.ID, nil
}

func validID(id int64, n int) bool {
	return id > 0 && id <= int64(n)
}

// Colors returns every color, newest first.
func (r *MemoryRepository) Colors() []arprobe.ColorRecord {
	r.mu.RLock()
	out := slices.Clone(r.colors)
	r.mu.RUnlock()
	slices.Reverse(out)
	return out
}

// Photos returns every photo, newest first.
func (r *MemoryRepository) Photos() []arprobe.PhotoRecord {
	r.mu.RLock()
	out := slices.Clone(r.photos)
	r.mu.RUnlock()
	slices.Reverse(out)
	return out
}

// Palettes returns every palette, newest first.
func (r *MemoryRepository) Palettes() []arprobe.PaletteRecord {
	r.mu.RLock()
	out := slices.Clone(r.palettes)
	r.mu.RUnlock()
	slices.Reverse(out)
	return out
}

// Photo returns the photo with the given id.
func (r *MemoryRepository) Photo(id int64) (arprobe.PhotoRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !validID(id, len(r.photos)) {
		return arprobe.PhotoRecord{}, fmt.Errorf("photo %d: %w", id, ErrNotFound)
	}
	return r.photos[id-1], nil
}

// PalettesWithColors returns every palette with its colors, newest
// palette first. Colors keep insertion order.
func (r *MemoryRepository) PalettesWithColors() []PaletteWithColors {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PaletteWithColors, len(r.palettes))
	for i, p := range r.palettes {
		out[len(r.palettes)-1-i].Palette = p
	}
	for _, c := range r.colors {
		if c.PaletteID == 0 {
			continue
		}
		idx := len(r.palettes) - int(c.PaletteID)
		out[idx].Colors = append(out[idx].Colors, c)
	}
	return out
}

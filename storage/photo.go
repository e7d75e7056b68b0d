// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/arprobe"
	"github.com/gogpu/arprobe/ar"
)

// PhotoExt is the file extension of an encoded photo.
const PhotoExt = ".arphoto.zst"

// Photo container layout, before compression:
//
//	magic "ARPH" | version u8 | status u8 | format u8 | planes u8
//	width u32 | height u32 | timestamp i64 (ns)
//	per plane: rowStride u32 | pixelStride u32 | length u32 | data
//
// All integers are little-endian.
const (
	photoMagic   = "ARPH"
	photoVersion = 1
	headerSize   = 4 + 4 + 4 + 4 + 8
	planeHeader  = 4 + 4 + 4
)

// ErrInvalidPhoto is returned by DecodePhoto for malformed data.
var ErrInvalidPhoto = errors.New("storage: invalid photo")

var (
	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() *zstd.Encoder {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getDecoder() *zstd.Decoder {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Photo is a decoded photo. It implements ar.CameraImage so stored photos
// can be fed back to anything that consumes camera images.
type Photo struct {
	Status    arprobe.CaptureStatus
	Fmt       ar.ImageFormat
	W, H      int
	Time      time.Duration
	PlaneData []ar.Plane
}

var _ ar.CameraImage = (*Photo)(nil)

func (p *Photo) Width() int               { return p.W }
func (p *Photo) Height() int              { return p.H }
func (p *Photo) Format() ar.ImageFormat   { return p.Fmt }
func (p *Photo) Planes() []ar.Plane       { return p.PlaneData }
func (p *Photo) Timestamp() time.Duration { return p.Time }
func (p *Photo) Close() error             { return nil }

// EncodePhoto serializes img and compresses it with zstd.
func EncodePhoto(img ar.CameraImage, status arprobe.CaptureStatus) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode photo: %w", ar.ErrNotYetAvailable)
	}
	planes := img.Planes()
	if len(planes) > 255 {
		return nil, fmt.Errorf("encode photo: %d planes", len(planes))
	}

	size := headerSize
	for _, p := range planes {
		size += planeHeader + len(p.Data)
	}
	raw := make([]byte, 0, size)
	raw = append(raw, photoMagic...)
	raw = append(raw, photoVersion, byte(status), byte(img.Format()), byte(len(planes)))
	raw = binary.LittleEndian.AppendUint32(raw, uint32(img.Width()))  //nolint:gosec // image dimensions fit uint32
	raw = binary.LittleEndian.AppendUint32(raw, uint32(img.Height())) //nolint:gosec // image dimensions fit uint32
	raw = binary.LittleEndian.AppendUint64(raw, uint64(img.Timestamp()))
	for _, p := range planes {
		raw = binary.LittleEndian.AppendUint32(raw, uint32(p.RowStride))   //nolint:gosec // strides fit uint32
		raw = binary.LittleEndian.AppendUint32(raw, uint32(p.PixelStride)) //nolint:gosec // strides fit uint32
		raw = binary.LittleEndian.AppendUint32(raw, uint32(len(p.Data)))   //nolint:gosec // plane size fits uint32
		raw = append(raw, p.Data...)
	}

	enc := getEncoder()
	defer encoderPool.Put(enc)
	return enc.EncodeAll(raw, nil), nil
}

// DecodePhoto reverses EncodePhoto.
func DecodePhoto(data []byte) (*Photo, error) {
	dec := getDecoder()
	defer decoderPool.Put(dec)
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPhoto, err)
	}
	if len(raw) < headerSize || string(raw[:4]) != photoMagic {
		return nil, fmt.Errorf("%w: bad header", ErrInvalidPhoto)
	}
	if raw[4] != photoVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidPhoto, raw[4])
	}
	p := &Photo{
		Status: arprobe.CaptureStatus(raw[5]),
		Fmt:    ar.ImageFormat(raw[6]),
		W:      int(binary.LittleEndian.Uint32(raw[8:])),
		H:      int(binary.LittleEndian.Uint32(raw[12:])),
		Time:   time.Duration(binary.LittleEndian.Uint64(raw[16:])), //nolint:gosec // round trip of a Duration
	}
	n := int(raw[7])
	rest := raw[headerSize:]
	for i := range n {
		if len(rest) < planeHeader {
			return nil, fmt.Errorf("%w: plane %d truncated", ErrInvalidPhoto, i)
		}
		rowStride := int(binary.LittleEndian.Uint32(rest[0:]))
		pixelStride := int(binary.LittleEndian.Uint32(rest[4:]))
		length := int(binary.LittleEndian.Uint32(rest[8:]))
		rest = rest[planeHeader:]
		if len(rest) < length {
			return nil, fmt.Errorf("%w: plane %d truncated", ErrInvalidPhoto, i)
		}
		p.PlaneData = append(p.PlaneData, ar.Plane{
			Data:        rest[:length:length],
			RowStride:   rowStride,
			PixelStride: pixelStride,
		})
		rest = rest[length:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidPhoto, len(rest))
	}
	return p, nil
}

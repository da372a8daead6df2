// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encoding identifies the compression applied to a beacon body.
type Encoding uint8

const (
	None Encoding = iota
	Gzip
	Zstd
	LZ4
)

// String returns the configuration name of the encoding.
func (e Encoding) String() string {
	switch e {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// ContentEncoding returns the HTTP Content-Encoding token, or "" for
// None.
func (e Encoding) ContentEncoding() string {
	if e == None {
		return ""
	}
	return e.String()
}

// Parse parses a configuration name or Content-Encoding token. The
// empty string and "identity" mean None.
func Parse(name string) (Encoding, error) {
	switch name {
	case "", "none", "identity":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "zstd":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler so configuration files
// can name the encoding.
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ErrTooLarge is returned by Decompress when the decoded body exceeds
// the caller's limit.
var ErrTooLarge = errors.New("compress: decompressed body exceeds limit")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress encodes data. For None it returns data unchanged.
func Compress(data []byte, encoding Encoding) ([]byte, error) {
	switch encoding {
	case None:
		return data, nil
	case Gzip:
		var buffer bytes.Buffer
		writer := gzip.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("gzip compress: %w", err)
		}
		return buffer.Bytes(), nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case LZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buffer.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %d", encoding)
	}
}

// Decompress decodes data. The result is at most maxSize bytes;
// larger bodies return ErrTooLarge.
func Decompress(data []byte, encoding Encoding, maxSize int64) ([]byte, error) {
	var reader io.Reader
	switch encoding {
	case None:
		if int64(len(data)) > maxSize {
			return nil, ErrTooLarge
		}
		return data, nil
	case Gzip:
		gzipReader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	case Zstd:
		decoded, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if int64(len(decoded)) > maxSize {
			return nil, ErrTooLarge
		}
		return decoded, nil
	case LZ4:
		reader = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression %d", encoding)
	}

	decoded, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", encoding, err)
	}
	if int64(len(decoded)) > maxSize {
		return nil, ErrTooLarge
	}
	return decoded, nil
}

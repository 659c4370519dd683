// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ErrModuleFormat is returned for module files with an unknown suffix.
var ErrModuleFormat = errors.New("unsupported module file format")

// Open returns a reader for the uncompressed content of the module file at
// the given index path.
func (i *Index) Open(path string) (io.ReadCloser, error) {
	return OpenModule(i.fsys, path)
}

// OpenModule opens the module file at path in the given file system and
// returns a reader yielding its uncompressed content. The compression
// scheme is selected by file suffix, like the kernel tools do.
func OpenModule(fsys fs.FS, path string) (io.ReadCloser, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module: %w", err)
	}

	reader, err := decompressingReader(file, path)
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("open module %s: %w", path, err)
	}

	return reader, nil
}

func decompressingReader(file fs.File, path string) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(path, ".ko"):
		return file, nil
	case strings.HasSuffix(path, ".gz"):
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}

		return &moduleReader{
			Reader: gzReader,
			close: func() error {
				return errors.Join(gzReader.Close(), file.Close())
			},
		}, nil
	case strings.HasSuffix(path, ".xz"):
		xzReader, err := xz.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("xz: %w", err)
		}

		return &moduleReader{
			Reader: xzReader,
			close:  file.Close,
		}, nil
	case strings.HasSuffix(path, ".zst"):
		zstReader, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}

		return &moduleReader{
			Reader: zstReader,
			close: func() error {
				zstReader.Close()

				return file.Close()
			},
		}, nil
	default:
		return nil, ErrModuleFormat
	}
}

type moduleReader struct {
	io.Reader
	close func() error
}

func (r *moduleReader) Close() error {
	return r.close()
}

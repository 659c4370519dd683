// SPDX-FileCopyrightText: 2026 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strings"

	"github.com/u-root/u-root/pkg/cpio"
	"golang.org/x/sys/unix"
)

// Number of links for directory entries. Other entry types have 1.
const dirNumLinks = 2

// Archives are padded with zero bytes to a multiple of this size, like the
// classic cpio tools do.
const padBlockSize = 512

// CPIOWriter implements [Writer] writing newc format records.
//
// All metadata the format requires but the caller does not supply is pinned
// to constants: mtime 0, uid/gid 0, device 0. Inode numbers are assigned
// sequentially in write order. With entries written in stable order the
// resulting archive is byte-for-byte reproducible.
type CPIOWriter struct {
	writer       io.Writer
	recordWriter cpio.RecordWriter
	written      int64
	nextIno      uint64
	closed       bool
}

// NewCPIOWriter creates a new archive writer writing to w.
func NewCPIOWriter(w io.Writer) *CPIOWriter {
	writer := &CPIOWriter{writer: w}
	writer.recordWriter = cpio.Newc.Writer(countingWriter{writer})

	return writer
}

// Close terminates the archive with the canonical trailer record and pads
// it to the next block boundary.
func (w *CPIOWriter) Close() error {
	if w.closed {
		return ErrArchiveClosed
	}

	w.closed = true

	if err := cpio.WriteTrailer(w.recordWriter); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}

	padLen := (padBlockSize - w.written%padBlockSize) % padBlockSize
	if padLen == 0 {
		return nil
	}

	if _, err := w.writer.Write(make([]byte, padLen)); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}

	return nil
}

// WriteDirectory adds a directory entry for the given path to the archive.
func (w *CPIOWriter) WriteDirectory(path string, mode fs.FileMode) error {
	return w.writeRecord(cpio.Record{
		Info: cpio.Info{
			Mode:  unix.S_IFDIR | uint64(mode.Perm()),
			NLink: dirNumLinks,
			Name:  archivePath(path),
		},
	})
}

// WriteLink adds a symbolic link for the given path pointing to the given
// target. The body of a link is the target path.
func (w *CPIOWriter) WriteLink(path, target string) error {
	return w.writeRecord(cpio.Record{
		ReaderAt: strings.NewReader(target),
		Info: cpio.Info{
			Mode:     unix.S_IFLNK | 0o777,
			NLink:    1,
			FileSize: uint64(len(target)),
			Name:     archivePath(path),
		},
	})
}

// WriteRegular copies the given source file into the archive.
func (w *CPIOWriter) WriteRegular(path string, source io.Reader, mode fs.FileMode) error {
	body, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("read source for %s: %w", path, err)
	}

	if uint64(len(body)) > math.MaxUint32 {
		return &ConflictError{
			Path:   path,
			Reason: "file size exceeds format limit",
		}
	}

	return w.writeRecord(cpio.Record{
		ReaderAt: bytes.NewReader(body),
		Info: cpio.Info{
			Mode:     unix.S_IFREG | uint64(mode.Perm()),
			NLink:    1,
			FileSize: uint64(len(body)),
			Name:     archivePath(path),
		},
	})
}

// WriteCharDev adds a character device node with the given device numbers.
func (w *CPIOWriter) WriteCharDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	return w.writeDevice(unix.S_IFCHR, path, mode, major, minor)
}

// WriteBlockDev adds a block device node with the given device numbers.
func (w *CPIOWriter) WriteBlockDev(
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	return w.writeDevice(unix.S_IFBLK, path, mode, major, minor)
}

func (w *CPIOWriter) writeDevice(
	kind uint64,
	path string,
	mode fs.FileMode,
	major, minor uint64,
) error {
	return w.writeRecord(cpio.Record{
		Info: cpio.Info{
			Mode:   kind | uint64(mode.Perm()),
			NLink:  1,
			Rmajor: major,
			Rminor: minor,
			Name:   archivePath(path),
		},
	})
}

func (w *CPIOWriter) writeRecord(record cpio.Record) error {
	if w.closed {
		return ErrArchiveClosed
	}

	record.Ino = w.nextIno
	w.nextIno++

	if err := w.recordWriter.WriteRecord(record); err != nil {
		return fmt.Errorf("write record for %s: %w", record.Name, err)
	}

	return nil
}

// archivePath converts an absolute path into the relative form stored in
// the archive.
func archivePath(path string) string {
	return strings.TrimPrefix(path, "/")
}

// countingWriter tracks the number of bytes written for trailing block
// padding.
type countingWriter struct {
	w *CPIOWriter
}

func (c countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.writer.Write(p)
	c.w.written += int64(n)

	return n, err //nolint:wrapcheck
}

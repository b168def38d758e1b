// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Compression is the stream compression of an archive.
type Compression string

const (
	// Gzip is written with parallel block compression.
	Gzip Compression = "gzip"
	// XZ trades speed for smaller archives.
	XZ Compression = "xz"
)

// CompressionFor picks the compression from an archive file name:
// .tar.xz and .txz use XZ, everything else Gzip.
func CompressionFor(path string) Compression {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.xz") || strings.HasSuffix(lower, ".txz") {
		return XZ
	}
	return Gzip
}

// IsArchiveName reports whether path has a supported archive extension.
func IsArchiveName(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range []string{".tgz", ".tar.gz", ".txz", ".tar.xz"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func newCompressor(c Compression, w io.Writer) (io.WriteCloser, error) {
	if c == XZ {
		return xz.NewWriter(w)
	}
	return pgzip.NewWriter(w), nil
}

func newDecompressor(c Compression, r io.Reader) (io.Reader, func() error, error) {
	if c == XZ {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, func() error { return nil }, nil
	}
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	return gz, gz.Close, nil
}

// epoch is stamped on every entry so archives of equal trees are byte equal.
var epoch = time.Unix(0, 0).UTC()

// Result describes a written archive.
type Result struct {
	Path        string      `json:"path" yaml:"path"`
	Compression Compression `json:"compression" yaml:"compression"`
	Digest      string      `json:"digest" yaml:"digest"`
	Size        int64       `json:"size" yaml:"size"`
	Files       int         `json:"files" yaml:"files"`
}

// Create writes a compressed tar of srcDir to dest, with the compression
// chosen by CompressionFor. Entries are sorted and carry fixed ownership and
// timestamps, so equal trees produce equal archives. The returned digest is
// the sha256 of the archive file.
func Create(ctx context.Context, srcDir, dest string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := collect(srcDir, dest)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	h := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(tmp, h)}
	compression := CompressionFor(dest)
	zw, err := newCompressor(compression, counter)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to create %s writer: %w", compression, err)
	}
	tw := tar.NewWriter(zw)

	files := 0
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return nil, err
		}
		isFile, err := addEntry(tw, srcDir, rel)
		if err != nil {
			tmp.Close()
			return nil, err
		}
		if isFile {
			files++
		}
	}

	if err := tw.Close(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to finish %s stream: %w", compression, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to set archive mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}

	res := &Result{
		Path:        dest,
		Compression: compression,
		Digest:      "sha256:" + hex.EncodeToString(h.Sum(nil)),
		Size:        counter.n,
		Files:       files,
	}
	slog.Debug("archive created", "path", dest, "files", files, "size", res.Size)
	return res, nil
}

// collect returns the slash separated relative paths below srcDir in
// sorted order, skipping dest if it lives inside srcDir.
func collect(srcDir, dest string) ([]string, error) {
	absDest, _ := filepath.Abs(dest)
	var paths []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absDest {
			return nil
		}
		if !d.IsDir() && !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", srcDir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func addEntry(tw *tar.Writer, srcDir, rel string) (bool, error) {
	path := filepath.Join(srcDir, filepath.FromSlash(rel))
	info, err := os.Lstat(path)
	if err != nil {
		return false, err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return false, err
		}
	}
	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return false, fmt.Errorf("failed to build header for %s: %w", rel, err)
	}
	hdr.Name = rel
	hdr.ModTime = epoch
	hdr.AccessTime = time.Time{}
	hdr.ChangeTime = time.Time{}
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""
	hdr.Format = tar.FormatPAX
	switch {
	case info.IsDir():
		hdr.Name += "/"
		hdr.Mode = 0o755
	case info.Mode()&0o111 != 0:
		hdr.Mode = 0o755
	default:
		hdr.Mode = 0o644
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return false, fmt.Errorf("failed to write header for %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return false, fmt.Errorf("failed to archive %s: %w", rel, err)
	}
	return true, nil
}

// Extract unpacks an archive created by Create into dest. Entries that
// would escape dest are rejected.
func Extract(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	compression := CompressionFor(src)
	zr, closeReader, err := newDecompressor(compression, f)
	if err != nil {
		return fmt.Errorf("failed to create %s reader for %s: %w", compression, src, err)
	}
	defer closeReader()

	dest, err = filepath.Abs(dest)
	if err != nil {
		return err
	}

	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar header in %s: %w", src, err)
		}

		target := filepath.Join(dest, filepath.FromSlash(hdr.Name))
		if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path in archive: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			if err := out.Close(); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("illegal absolute symlink in archive: %s", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			slog.Debug("skipping unsupported archive entry", "name", hdr.Name, "type", hdr.Typeflag)
		}
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

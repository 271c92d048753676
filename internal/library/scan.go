// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package library

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tesladash/clipforge/internal/clip"
)

// Scan walks rootPath and returns every regular file found as a
// FileDescriptor, relative-path and forward-slash normalized, sorted for
// deterministic downstream grouping. Grounded in
// backmassage-Muxmaster/internal/pipeline/discover.go's WalkDir+sort shape.
func Scan(rootPath string) ([]clip.FileDescriptor, error) {
	var out []clip.FileDescriptor
	err := filepath.WalkDir(rootPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Best effort: skip files we can't stat rather than aborting
			// the whole scan (§4.2 failure semantics: bad files are
			// skipped, never fatal).
			return nil
		}
		rel, err := filepath.Rel(rootPath, p)
		if err != nil {
			return nil
		}
		out = append(out, clip.FileDescriptor{
			Path:     p,
			RelPath:  stripDotSlash(filepath.ToSlash(rel)),
			Size:     info.Size(),
			ModNanos: info.ModTime().UnixNano(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out, nil
}

// stripDotSlash normalizes a leading "./" some filepath.Rel results carry.
func stripDotSlash(p string) string {
	return strings.TrimPrefix(p, "./")
}

// readFileLimited reads at most limit bytes of path. event.json sidecars are
// tiny in practice; the cap just guards against a corrupt or unrelated file
// sharing the name.
func readFileLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, limit))
}

// Copyright 2026 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DirectoryClient serves objects from a local directory.  Bucket names are
// ignored and object names are paths relative to Root.
type DirectoryClient struct {
	Root string
}

// NewObjectHandle implements Client.
func (c DirectoryClient) NewObjectHandle(_, object string) ObjectHandle {
	return fileHandle{root: c.Root, object: object}
}

type fileHandle struct {
	root, object string
}

func (h fileHandle) path() (string, error) {
	root := filepath.Clean(h.root)
	path := filepath.Join(root, filepath.FromSlash(h.object))
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", ErrInvalidID, h.object, root)
	}
	return path, nil
}

type limitedFile struct {
	io.Reader
	io.Closer
}

func (h fileHandle) NewRangeReader(_ context.Context, offset, length int64) (io.ReadCloser, error) {
	path, err := h.path()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	case os.IsPermission(err):
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case err != nil:
		return nil, fmt.Errorf("opening %s: %v", path, err)
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("seeking to %d: %v", offset, err)
		}
	}
	if length < 0 {
		return f, nil
	}
	return limitedFile{io.LimitReader(f, length), f}, nil
}

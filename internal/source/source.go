// Copyright 2017 Google Inc.
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

// Package source opens hit tables held in object storage or in a local
// directory, transparently removing BGZF or gzip compression.
package source

import (
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/igcbioinformatics/Syn2Chr/internal/bgzf"
)

var (
	// ErrInvalidID is returned for object IDs that do not name a bucket and
	// an object.
	ErrInvalidID = errors.New("invalid or unspecified ID")

	// ErrMissingOrInvalidToken is returned when a request carries no usable
	// bearer token.
	ErrMissingOrInvalidToken = errors.New("missing or invalid token")

	ErrNotFound         = errors.New("object does not exist")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// Client provides access to objects in a storage engine.
type Client interface {
	// NewObjectHandle returns a handle to a specified object in
	// the storage engine.
	NewObjectHandle(bucket, object string) ObjectHandle
}

// ObjectHandle provides read access to a single object.
type ObjectHandle interface {
	// NewRangeReader returns a reader that reads from a specified
	// range. Length of -1 means to capture everything until the
	// end.
	NewRangeReader(ctx context.Context, offset, length int64) (io.ReadCloser, error)
}

// ParseID splits an ID of the form "bucket/object".
func ParseID(id string) (string, string, error) {
	if parts := strings.SplitN(id, "/", 2); len(parts) == 2 {
		if parts[0] != "" && parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", ErrInvalidID
}

// ParseURI splits a URI of the form "gs://bucket/object".
func ParseURI(uri string) (string, string, error) {
	const scheme = "gs://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("%w: %q is not a gs:// URI", ErrInvalidID, uri)
	}
	return ParseID(strings.TrimPrefix(uri, scheme))
}

// IsURI reports whether name refers to object storage rather than a local
// path.
func IsURI(name string) bool {
	return strings.HasPrefix(name, "gs://")
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns the uncompressed contents of an object.  BGZF and plain gzip
// objects are detected from their leading bytes.
func Open(ctx context.Context, client Client, bucket, object string) (io.ReadCloser, error) {
	rc, err := client.NewObjectHandle(bucket, object).NewRangeReader(ctx, 0, -1)
	if err != nil {
		return nil, MapError(err)
	}
	return Decompress(rc)
}

// Decompress wraps rc so that reads return uncompressed data.  Closing the
// result closes rc.
func Decompress(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)
	header, err := br.Peek(bgzf.HeaderSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		rc.Close()
		return nil, fmt.Errorf("reading header: %v", err)
	}

	switch {
	case bgzf.IsBGZF(header):
		return &multiCloser{bgzf.NewReader(br), []io.Closer{rc}}, nil
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("initializing gzip reader: %v", err)
		}
		return &multiCloser{gzr, []io.Closer{gzr, rc}}, nil
	default:
		return &multiCloser{br, []io.Closer{rc}}, nil
	}
}

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

package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/igcbioinformatics/Syn2Chr/internal/bgzf"
)

const hits = "scaffold_1\tchr1\t99.0\t100\t1\t0\t1\t100\t1001\t1100\t0.0\t180\n"

func TestParseID(t *testing.T) {
	testCases := []struct {
		name, id       string
		bucket, object string
		ok             bool
	}{
		{"bucket and object", "bucket/object.tsv", "bucket", "object.tsv", true},
		{"nested object", "bucket/dir/object.tsv", "bucket", "dir/object.tsv", true},
		{"no object", "bucket", "", "", false},
		{"trailing slash", "bucket/", "", "", false},
		{"empty", "", "", "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			bucket, object, err := ParseID(tc.id)
			if !tc.ok {
				if !errors.Is(err, ErrInvalidID) {
					t.Errorf("ParseID(%q): got %v, want ErrInvalidID", tc.id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) returned unexpected error: %v", tc.id, err)
			}
			if bucket != tc.bucket || object != tc.object {
				t.Errorf("ParseID(%q): got (%q, %q), want (%q, %q)", tc.id, bucket, object, tc.bucket, tc.object)
			}
		})
	}
}

func TestParseURI(t *testing.T) {
	bucket, object, err := ParseURI("gs://genomes/hits/blast.tsv.gz")
	require.NoError(t, err)
	assert.Equal(t, "genomes", bucket)
	assert.Equal(t, "hits/blast.tsv.gz", object)

	_, _, err = ParseURI("/local/blast.tsv")
	assert.True(t, errors.Is(err, ErrInvalidID))
	assert.True(t, IsURI("gs://a/b"))
	assert.False(t, IsURI("a/b"))
}

func writeFiles(t *testing.T) string {
	dir := t.TempDir()

	var gz bytes.Buffer
	gzw := gzip.NewWriter(&gz)
	gzw.Write([]byte(hits))
	require.NoError(t, gzw.Close())

	bgz, err := bgzf.Encode([]byte(hits))
	require.NoError(t, err)

	for name, content := range map[string][]byte{
		"hits.tsv":         []byte(hits),
		"hits.tsv.gz":      gz.Bytes(),
		"hits.tsv.bgz":     bgz,
		"nested/hits.tsv":  []byte(hits),
		"empty.tsv":        nil,
		"compressed.noext": bgz,
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
	return dir
}

func TestOpen(t *testing.T) {
	client := DirectoryClient{Root: writeFiles(t)}
	testCases := []struct{ name, object, want string }{
		{"plain", "hits.tsv", hits},
		{"gzip", "hits.tsv.gz", hits},
		{"bgzf", "hits.tsv.bgz", hits},
		{"detected without extension", "compressed.noext", hits},
		{"nested", "nested/hits.tsv", hits},
		{"empty", "empty.tsv", ""},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := Open(ctx, client, "ignored", tc.object)
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	client := DirectoryClient{Root: writeFiles(t)}
	testCases := []struct {
		name, object string
		want         error
	}{
		{"missing", "missing.tsv", ErrNotFound},
		{"escapes root", "../outside.tsv", ErrInvalidID},
		{"root itself", ".", ErrInvalidID},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Open(ctx, client, "bucket", tc.object); !errors.Is(err, tc.want) {
				t.Errorf("Open(%q): got %v, want %v", tc.object, err, tc.want)
			}
		})
	}
}

func TestDirectoryClient_Range(t *testing.T) {
	client := DirectoryClient{Root: writeFiles(t)}
	rc, err := client.NewObjectHandle("", "hits.tsv").NewRangeReader(context.Background(), 11, 4)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "chr1", string(got))
}

func TestNewClientFromBearerToken_Invalid(t *testing.T) {
	for _, authorization := range []string{"", "Basic abc", "Bearer", "Bearer a b"} {
		req, err := http.NewRequest("GET", "/synteny/bucket/object", nil)
		require.NoError(t, err)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		if _, err := NewClientFromBearerToken(req); err != ErrMissingOrInvalidToken {
			t.Errorf("NewClientFromBearerToken(%q): got %v, want ErrMissingOrInvalidToken", authorization, err)
		}
	}
}

// This test ensures that the undocumented error handling behaviour of the GCS
// storage client does not change.
func TestGoogleAPIInternalErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, ErrPermissionDenied},
		{"not found", http.StatusNotFound, ErrNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			gcs, err := storage.NewClient(ctx, option.WithHTTPClient(&http.Client{Transport: fixedStatus(tc.status)}))
			if err != nil {
				t.Fatalf("Failed to create storage client: %v", err)
			}
			if _, err := Open(ctx, GCSClient{gcs}, "bucket", "hits.tsv"); !errors.Is(err, tc.want) {
				t.Errorf("Open(): got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	err := errors.New("connection reset")
	if got := MapError(err); got != err {
		t.Errorf("MapError(): got %v, want %v", got, err)
	}
}

type fixedStatus int

func (code fixedStatus) RoundTrip(*http.Request) (*http.Response, error) {
	return &http.Response{
		Status:     http.StatusText(int(code)),
		StatusCode: int(code),
		Body:       http.NoBody,
	}, nil
}

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

// Package bgzf provides support for reading and writing BGZF (bgzip) files.
package bgzf

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
)

// MaximumBlockSize is the maximum BGZF block size.
const MaximumBlockSize = 65536

// HeaderSize is the number of leading bytes IsBGZF needs to inspect.
const HeaderSize = 18

// IsBGZF reports whether header starts with a gzip member carrying the BGZF
// "BC" extra subfield.
func IsBGZF(header []byte) bool {
	if len(header) < HeaderSize {
		return false
	}
	const flagExtra = 0x04
	return header[0] == 0x1f && header[1] == 0x8b && header[2] == 0x08 &&
		header[3]&flagExtra != 0 &&
		header[12] == 0x42 && header[13] == 0x43
}

// DecodeBlock decodes a single BGZF block from r and returns the uncompressed
// data and the original block size (or an error).  Note that DecodeBlock may
// read bytes past the end of the block if r does not implement io.ByteReader.
func DecodeBlock(r io.Reader) ([]byte, uint16, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("initializing gzip reader: %v", err)
	}
	defer gzr.Close()

	extra := gzr.Header.Extra
	if len(extra) < 6 {
		return nil, 0, fmt.Errorf("missing BGZF extra field: %x", extra)
	}
	if extra[0] != 0x42 || extra[1] != 0x43 {
		return nil, 0, fmt.Errorf("unexpected extra ID: %x", extra[0:2])
	}
	if extra[2] != 2 || extra[3] != 0 {
		return nil, 0, fmt.Errorf("unexpected extra length: %x", extra[2:4])
	}

	gzr.Multistream(false)
	var buffer bytes.Buffer
	if _, err := io.Copy(&buffer, gzr); err != nil {
		return nil, 0, fmt.Errorf("decompressing data: %v", err)
	}
	return buffer.Bytes(), (uint16(extra[4]) | uint16(extra[5])<<8) + 1, nil
}

// EncodeBlock returns a single BGZF block that encodes the bytes in data.
func EncodeBlock(data []byte) ([]byte, error) {
	if len(data) > MaximumBlockSize {
		return nil, errors.New("data exceeds maximum block size")
	}

	var buffer bytes.Buffer
	gzw := gzip.NewWriter(&buffer)
	gzw.Header.Extra = []byte{
		0x42, 0x43, // Extra ID.
		0x02, 0x00, // Length of extra data (2 bytes).
		0x88, 0x88, // BSIZE (filled in after writing the archive).
	}
	if _, err := gzw.Write(data); err != nil {
		return nil, fmt.Errorf("writing compressed data: %v", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing writer: %v", err)
	}

	bsize := buffer.Len() - 1
	encoded := buffer.Bytes()
	encoded[16] = byte(bsize)
	encoded[17] = byte(bsize >> 8)
	return encoded, nil
}

// Encode splits data into BGZF blocks and appends the empty EOF block.
func Encode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	for len(data) > 0 {
		n := len(data)
		if n > MaximumBlockSize {
			n = MaximumBlockSize
		}
		block, err := EncodeBlock(data[:n])
		if err != nil {
			return nil, err
		}
		out.Write(block)
		data = data[n:]
	}
	eof, err := EncodeBlock(nil)
	if err != nil {
		return nil, err
	}
	out.Write(eof)
	return out.Bytes(), nil
}

// Reader decompresses a stream of consecutive BGZF blocks.
type Reader struct {
	r      *bufio.Reader
	data   []byte
	blocks int
	err    error
}

// NewReader returns a Reader decoding the blocks in r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.  Empty blocks, including the EOF marker, are
// skipped.
func (r *Reader) Read(p []byte) (int, error) {
	for len(r.data) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if _, err := r.r.Peek(1); err != nil {
			if err != io.EOF {
				err = fmt.Errorf("reading block %d: %v", r.blocks, err)
			}
			r.err = err
			continue
		}
		data, _, err := DecodeBlock(r.r)
		if err != nil {
			r.err = fmt.Errorf("decoding block %d: %v", r.blocks, err)
			continue
		}
		r.blocks++
		r.data = data
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

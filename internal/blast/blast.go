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

// Package blast provides support for parsing BLAST tabular (-outfmt 6) hit
// tables.
package blast

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/igcbioinformatics/Syn2Chr/internal/genomics"
)

const (
	// The minimum number of columns: everything up to and including the
	// E-value.  The bit score column is optional.
	minimumColumns = 11

	// Lines longer than this are treated as malformed rather than buffered.
	maximumLineLength = 1 << 20
)

// ErrMalformedRecord is returned for lines that are not valid hit records.
var ErrMalformedRecord = errors.New("malformed hit record")

// Record is one line of a BLAST tabular hit table.
type Record struct {
	Query       string
	Subject     string
	Identity    float64
	Length      int64
	Mismatches  int64
	GapOpens    int64
	QueryStart  int64
	QueryEnd    int64
	SubjectFrom int64
	SubjectTo   int64
	EValue      float64
	BitScore    float64
}

// HitPair returns the midpoint of the hit on both axes.
func (r Record) HitPair() genomics.HitPair {
	return genomics.Midpoint(r.QueryStart, r.QueryEnd, r.SubjectFrom, r.SubjectTo)
}

// Chromosome returns the case-normalized subject name.
func (r Record) Chromosome() string {
	return genomics.NormalizeChromosome(r.Subject)
}

func parseInt(field, name string) (int64, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing %s %q", ErrMalformedRecord, name, field)
	}
	return n, nil
}

func parseFloat(field, name string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: parsing %s %q", ErrMalformedRecord, name, field)
	}
	return v, nil
}

// ParseRecord parses a single tab-separated hit line.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < minimumColumns {
		return Record{}, fmt.Errorf("%w: got %d columns, want at least %d", ErrMalformedRecord, len(fields), minimumColumns)
	}

	record := Record{Query: fields[0], Subject: fields[1]}
	if record.Query == "" || record.Subject == "" {
		return Record{}, fmt.Errorf("%w: empty query or subject", ErrMalformedRecord)
	}

	var err error
	if record.Identity, err = parseFloat(fields[2], "identity"); err != nil {
		return Record{}, err
	}
	ints := []struct {
		dst  *int64
		name string
	}{
		{&record.Length, "length"},
		{&record.Mismatches, "mismatches"},
		{&record.GapOpens, "gap opens"},
		{&record.QueryStart, "qstart"},
		{&record.QueryEnd, "qend"},
		{&record.SubjectFrom, "sstart"},
		{&record.SubjectTo, "send"},
	}
	for i, v := range ints {
		if *v.dst, err = parseInt(fields[3+i], v.name); err != nil {
			return Record{}, err
		}
	}
	if record.EValue, err = parseFloat(fields[10], "evalue"); err != nil {
		return Record{}, err
	}
	if len(fields) > minimumColumns {
		if record.BitScore, err = parseFloat(strings.TrimSpace(fields[11]), "bitscore"); err != nil {
			return Record{}, err
		}
	}
	return record, nil
}

// Reader reads hit records from a tabular stream.  Blank lines and lines
// starting with '#' are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maximumLineLength)
	return &Reader{scanner: scanner}
}

// Read returns the next record, or io.EOF when the stream is exhausted.
func (r *Reader) Read() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		record, err := ParseRecord(text)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return record, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("line %d: reading: %v", r.line+1, err)
	}
	return Record{}, io.EOF
}

// ReadAll returns every record remaining in r.
func ReadAll(r io.Reader) ([]Record, error) {
	reader := NewReader(r)
	var records []Record
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// Filter reports whether a record is significant enough to keep.
type Filter func(Record) bool

// Cutoff returns a Filter keeping records with an E-value of zero or at most
// 10^-exponent.
func Cutoff(exponent int) Filter {
	limit, _ := strconv.ParseFloat(fmt.Sprintf("1e%d", -exponent), 64)
	return func(r Record) bool {
		return r.EValue == 0 || r.EValue <= limit
	}
}

// Package loader reads the three inputs of a merge run into tables.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/actimerge/internal/rdata"
	"github.com/huangsam/actimerge/schema"
)

// naTokens are the cell values read as missing.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "#N/A": {}, "<NA>": {},
	"NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadWorkspace decodes an R workspace. A missing file is schema.ErrNotFound.
func ReadWorkspace(path string) (*rdata.Workspace, error) {
	return rdata.ReadFile(path)
}

// FrameAt converts the data.frame found at the object path into a table
// named after the path, e.g. "M$metashort".
func FrameAt(ws *rdata.Workspace, loc *time.Location, path ...string) (*schema.Table, error) {
	obj, err := ws.Lookup(path...)
	if err != nil {
		return nil, err
	}
	return rdata.ToTable(rdata.ObjectPath(path), obj, loc)
}

// ReadCSV reads a CSV file with a header row. A column is numeric when every
// non-missing cell parses as a number; otherwise it is kept as text.
func ReadCSV(path string) (*schema.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", schema.ErrNotFound, path)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tbl, err := DecodeCSV(f, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// DecodeCSV reads CSV from r into a table called name.
func DecodeCSV(r io.Reader, name string) (*schema.Table, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header row", schema.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrInvalidInput, err)
	}
	names := columnNames(header)

	cells := make([][]string, len(names))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrInvalidInput, err)
		}
		for i, v := range record {
			cells[i] = append(cells[i], v)
		}
	}

	cols := make([]*schema.Column, len(names))
	for i, name := range names {
		cols[i] = inferColumn(name, cells[i])
	}
	return schema.NewTable(name, cols...)
}

// columnNames fills blank headers the way pandas does ("Unnamed: 0") and
// disambiguates duplicates with a ".1", ".2" suffix.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; seen[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func inferColumn(name string, cells []string) *schema.Column {
	floats := make([]float64, len(cells))
	numeric := true
	for i, c := range cells {
		c = strings.TrimSpace(c)
		if isNA(c) {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = v
	}
	if numeric {
		return schema.NewFloatColumn(name, floats)
	}

	var nulls []bool
	for i, c := range cells {
		if isNA(strings.TrimSpace(c)) {
			if nulls == nil {
				nulls = make([]bool, len(cells))
			}
			nulls[i] = true
		}
	}
	return schema.NewStringColumn(name, cells, nulls)
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

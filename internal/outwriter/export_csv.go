package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/actimerge/schema"
)

// FormatFloat renders a value the way Python's repr does: the shortest
// round-tripping digits, a trailing ".0" for integral values, and exponent
// notation below 1e-4 or from 1e16 on. NaN renders empty.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// formatFlag renders a flag as an integer, or empty when no flag entry matched.
func formatFlag(frame *schema.ExportFrame, i int) string {
	if frame.FlagNulls[i] {
		return ""
	}
	return strconv.FormatInt(frame.Flags[i], 10)
}

// writeExportCSV writes the two-column export: scaled value, then flag.
func writeExportCSV(w io.Writer, frame *schema.ExportFrame) error {
	return writeCSVWithHeader(w, frame.Header, func(cw *csv.Writer) error {
		record := make([]string, 2)
		for i := range frame.Len() {
			record[0] = FormatFloat(frame.Values[i])
			record[1] = formatFlag(frame, i)
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}

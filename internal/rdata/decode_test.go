package rdata_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/actimerge/internal/rdata"
	"github.com/huangsam/actimerge/internal/rdata/rdatatest"
	"github.com/huangsam/actimerge/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, f *rdatatest.File) *rdata.Workspace {
	t.Helper()
	ws, err := rdata.Decode(bytes.NewReader(f.Bytes()), "object")
	require.NoError(t, err)
	return ws
}

func TestDecodeAtomicVectors(t *testing.T) {
	ws := decode(t, rdatatest.NewWorkspace().
		Add("r", rdatatest.Real(1.5, rdatatest.NAReal())).
		Add("i", rdatatest.Int(7, rdatatest.NAInteger)).
		Add("l", rdatatest.Logical(1, 0, rdatatest.NAInteger)).
		Add("s", rdatatest.StrNA([]string{"a", "", "ü"}, []bool{false, true, false})))

	assert.Equal(t, []string{"r", "i", "l", "s"}, ws.Names)

	r, ok := ws.Get("r")
	require.True(t, ok)
	assert.Equal(t, rdata.RealType, r.Type)
	assert.Equal(t, 1.5, r.Reals[0])
	assert.True(t, r.IsNA(1))

	i, _ := ws.Get("i")
	assert.Equal(t, int32(7), i.Ints[0])
	assert.True(t, i.IsNA(1))

	l, _ := ws.Get("l")
	assert.Equal(t, rdata.LogicalType, l.Type)
	assert.Equal(t, 3, l.Len())
	assert.True(t, l.IsNA(2))

	s, _ := ws.Get("s")
	assert.Equal(t, "ü", s.Strings[2])
	assert.False(t, s.IsNA(0))
	assert.True(t, s.IsNA(1))
}

func TestDecodeNestedListsAndLookup(t *testing.T) {
	ws := decode(t, rdatatest.MetaWorkspace(
		[]string{"2024-03-01T12:00:00+0000", "2024-03-01T12:00:05+0000"},
		[]float64{0.01, 0.02},
		[]string{"2024-03-01T12:00:00+0000"},
	))

	short, err := ws.Lookup("M", "metashort")
	require.NoError(t, err)
	assert.True(t, short.Inherits("data.frame"))
	assert.Equal(t, []string{"timestamp", "anglez", "ENMO"}, short.Names())
	assert.Equal(t, 2, short.DataFrameRows())

	_, err = ws.Lookup("M", "metamedium")
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrNotFound))
	assert.Contains(t, err.Error(), "M$metamedium")

	_, err = ws.Lookup("IMP")
	assert.True(t, errors.Is(err, schema.ErrNotFound))
}

func TestDecodeSymbolReferences(t *testing.T) {
	// "names" and "class" are written once and back-referenced afterwards.
	ws := decode(t, rdatatest.NewWorkspace().
		Add("a", rdatatest.List([]string{"x"}, rdatatest.Real(1)).Class("foo")).
		Add("b", rdatatest.List([]string{"y"}, rdatatest.Real(2)).Class("bar")))

	b, _ := ws.Get("b")
	assert.Equal(t, []string{"y"}, b.Names())
	assert.Equal(t, []string{"bar"}, b.Class())
	assert.True(t, b.IsObject)
}

func TestDecodeAltrep(t *testing.T) {
	ws := decode(t, rdatatest.NewWorkspace().
		Add("seq", rdatatest.IntSeq(3, 4)).
		Add("wrapped", rdatatest.WrapReal(0.5, 0.25)).
		Add("deferred", rdatatest.DeferredInts(10, rdatatest.NAInteger)))

	seq, _ := ws.Get("seq")
	assert.Equal(t, rdata.IntType, seq.Type)
	assert.Equal(t, []int32{3, 4, 5, 6}, seq.Ints)
	assert.Equal(t, "compact_intseq", seq.AltClass)

	wrapped, _ := ws.Get("wrapped")
	assert.Equal(t, []float64{0.5, 0.25}, wrapped.Reals)

	deferred, _ := ws.Get("deferred")
	assert.Equal(t, rdata.StringType, deferred.Type)
	assert.Equal(t, "10", deferred.Strings[0])
	assert.True(t, deferred.IsNA(1))
}

func TestDecodeCompressionAndVersions(t *testing.T) {
	for _, c := range []rdatatest.Compression{rdatatest.None, rdatatest.Gzip, rdatatest.XZ, rdatatest.Zstd} {
		for _, v := range []int{2, 3} {
			t.Run(string(c)+"-v"+string(rune('0'+v)), func(t *testing.T) {
				f := rdatatest.NewWorkspace().Add("x", rdatatest.Real(42)).Compress(c).Version(v)
				ws := decode(t, f)
				assert.Equal(t, v, ws.Version)
				x, ok := ws.Get("x")
				require.True(t, ok)
				assert.Equal(t, []float64{42}, x.Reals)
				if c == rdatatest.None {
					assert.Equal(t, rdata.NoCompression, ws.Compression)
				} else {
					assert.Equal(t, rdata.Compression(c), ws.Compression)
				}
			})
		}
	}
}

func TestDecodeRDS(t *testing.T) {
	ws, err := rdata.Decode(bytes.NewReader(rdatatest.NewRDS(rdatatest.Int(1, 2)).Bytes()), "counts")
	require.NoError(t, err)
	assert.Equal(t, []string{"counts"}, ws.Names)
	counts, _ := ws.Get("counts")
	assert.Equal(t, []int32{1, 2}, counts.Ints)
}

func TestDecodeMalformed(t *testing.T) {
	full := rdatatest.NewWorkspace().Add("x", rdatatest.Real(1, 2, 3)).Bytes()

	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"truncated", full[:len(full)-6]},
		{"ascii format", []byte("RDA3\nA\n3\n")},
		{"unknown format", []byte("RDX3\nQ\n")},
		{"oversized compact sequence", rdatatest.NewWorkspace().Add("seq", rdatatest.IntSeq(1, 1<<30)).Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rdata.Decode(bytes.NewReader(tt.input), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, schema.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.RData")
	rdatatest.NewWorkspace().Add("x", rdatatest.Real(1)).Compress(rdatatest.Gzip).WriteFile(t, path)

	ws, err := rdata.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, ws.Path)

	_, err = rdata.ReadFile(filepath.Join(dir, "missing.RData"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrNotFound))

	garbage := filepath.Join(dir, "garbage.RData")
	require.NoError(t, os.WriteFile(garbage, []byte("not an R file at all"), 0o644))
	_, err = rdata.ReadFile(garbage)
	assert.True(t, errors.Is(err, schema.ErrInvalidInput))
}

func TestDescribe(t *testing.T) {
	ws := decode(t, rdatatest.MS2Workspace([]float64{0, 1}, []float64{0, 0}))
	infos := ws.Describe(2)

	paths := make([]string, len(infos))
	for i, info := range infos {
		paths[i] = info.Path
	}
	assert.Equal(t, []string{"IMP", "IMP$metashort", "IMP$rout", "IMP$averageday", "SUM", "SUM$n_days"}, paths)

	rout := infos[2]
	assert.Equal(t, "list", rout.Type)
	assert.Equal(t, []string{"data.frame"}, rout.Class)
	assert.Equal(t, 2, rout.Rows)
	assert.Equal(t, []string{"r1", "r2", "r3", "r4", "r5"}, rout.Columns)

	top := ws.Describe(1)
	assert.Len(t, top, 2)
}

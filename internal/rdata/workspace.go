package rdata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/actimerge/schema"
)

// Workspace is the set of named objects stored in one file. A .RData file
// holds any number of objects; an .rds file holds one, named after the file.
type Workspace struct {
	Path        string
	Compression Compression
	Version     int
	Names       []string
	objects     map[string]*Object
}

// ReadFile decodes the workspace at path.
func ReadFile(path string) (*Workspace, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", schema.ErrNotFound, path)
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	base := filepath.Base(path)
	ws, err := Decode(f, strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ws.Path = path
	return ws, nil
}

// Decode reads a workspace from r. rdsName names the single object of an
// .rds stream and is ignored for .RData streams.
func Decode(r io.Reader, rdsName string) (*Workspace, error) {
	br, kind, release, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer release()

	magic, _ := br.Peek(5)
	isWorkspace := false
	switch {
	case bytes.Equal(magic, []byte("RDX2\n")), bytes.Equal(magic, []byte("RDX3\n")):
		isWorkspace = true
		if _, err := br.Discard(5); err != nil {
			return nil, streamError(err)
		}
	case bytes.HasPrefix(magic, []byte("RDA")), bytes.HasPrefix(magic, []byte("RDB")):
		return nil, fmt.Errorf("%w: only XDR workspaces are supported, found %q", schema.ErrInvalidInput, strings.TrimSpace(string(magic)))
	}

	d := newDecoder(br)
	h, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	top, err := d.readItem()
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Compression: kind, Version: int(h.Version), objects: map[string]*Object{}}
	if !isWorkspace {
		ws.add(rdsName, top)
		return ws, nil
	}
	if top.IsNil() {
		return ws, nil
	}
	if top.Type != PairlistType {
		return nil, malformed("workspace root is %s, expected pairlist", top.Type)
	}
	for i, el := range top.Elements {
		ws.add(top.Tags[i], el)
	}
	return ws, nil
}

func (w *Workspace) add(name string, o *Object) {
	if _, dup := w.objects[name]; !dup {
		w.Names = append(w.Names, name)
	}
	w.objects[name] = o
}

// Get returns the top-level object with the given name.
func (w *Workspace) Get(name string) (*Object, bool) {
	o, ok := w.objects[name]
	return o, ok
}

// Lookup follows a path of names from a top-level object through nested
// named lists, e.g. Lookup("M", "metashort").
func (w *Workspace) Lookup(path ...string) (*Object, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty object path", schema.ErrInvalidInput)
	}
	o, ok := w.Get(path[0])
	if !ok {
		return nil, fmt.Errorf("%w: object %q in %s (have %v)", schema.ErrNotFound, path[0], w.describeSource(), w.Names)
	}
	for i := 1; i < len(path); i++ {
		child, ok := o.Element(path[i])
		if !ok {
			return nil, fmt.Errorf("%w: object %q in %s (have %v)",
				schema.ErrNotFound, ObjectPath(path[:i+1]), w.describeSource(), o.Names())
		}
		o = child
	}
	return o, nil
}

func (w *Workspace) describeSource() string {
	if w.Path == "" {
		return "workspace"
	}
	return w.Path
}

// ObjectPath renders a lookup path the way R code would write it, e.g. "M$metashort".
func ObjectPath(path []string) string {
	return strings.Join(path, "$")
}

// Describe lists the objects of the workspace, descending into named lists
// up to depth levels. Data frames are described but never descended into.
func (w *Workspace) Describe(depth int) []schema.ObjectInfo {
	var out []schema.ObjectInfo
	for _, name := range w.Names {
		out = describe(out, []string{name}, w.objects[name], depth)
	}
	return out
}

func describe(out []schema.ObjectInfo, path []string, o *Object, depth int) []schema.ObjectInfo {
	info := schema.ObjectInfo{
		Path:   ObjectPath(path),
		Type:   o.Type.String(),
		Class:  o.Class(),
		Length: o.Len(),
	}
	if o.Inherits("data.frame") {
		info.Rows = o.DataFrameRows()
		info.Columns = o.Names()
		return append(out, info)
	}
	out = append(out, info)
	if depth <= 1 || (o.Type != ListType && o.Type != PairlistType) {
		return out
	}
	names := o.Names()
	for i, el := range o.Elements {
		if i >= len(names) || names[i] == "" {
			continue
		}
		child := append(append([]string{}, path...), names[i])
		out = describe(out, child, el, depth-1)
	}
	return out
}

package core

import (
	"github.com/huangsam/actimerge/internal/loader"
	"github.com/huangsam/actimerge/schema"
)

// DefaultInspectDepth descends into top-level lists and their members.
const DefaultInspectDepth = 2

// InspectWorkspace lists the objects of an R workspace down to depth levels
// of nested lists. Data frames report their rows and columns.
func InspectWorkspace(path string, depth int) ([]schema.ObjectInfo, error) {
	ws, err := loader.ReadWorkspace(path)
	if err != nil {
		return nil, stageErr(LoaderStage, path, err)
	}
	if depth <= 0 {
		depth = DefaultInspectDepth
	}
	return ws.Describe(depth), nil
}

package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/schema"
)

// writeSummaryTable generates and writes the human-readable run summary.
func writeSummaryTable(w io.Writer, summary *schema.RunSummary, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Variant", "Path", "Rows", "Imputed", "Unmatched", "Share", "Label"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxTablePathWidth(cfg)
	var data [][]string
	for _, e := range summary.Exports {
		share := e.ImputedShare()
		label := schema.GetPlainLabel(share)
		if cfg.UseColors {
			label = contract.GetColorLabel(share)
		}
		data = append(data, []string{
			string(e.Variant),
			contract.TruncatePath(e.Path, maxWidth),
			strconv.Itoa(e.Rows),
			strconv.Itoa(e.ImputedRows),
			strconv.Itoa(e.UnmatchedRows),
			fmt.Sprintf("%.1f%%", share),
			label,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Header: %s\n", summary.Header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Merged %d signal rows against %d flag rows in %v. Run backend: %s\n",
		summary.SignalRows, summary.FlagRows, summary.Duration, cfg.RunBackend); err != nil {
		return err
	}
	return nil
}

// writeObjectTable lists the objects of one workspace.
func writeObjectTable(w io.Writer, path string, objects []schema.ObjectInfo) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Object", "Type", "Class", "Length", "Rows", "Columns"})

	var data [][]string
	for _, o := range objects {
		rows := ""
		if len(o.Columns) > 0 {
			rows = strconv.Itoa(o.Rows)
		}
		data = append(data, []string{
			o.Path,
			o.Type,
			strings.Join(o.Class, ","),
			strconv.Itoa(o.Length),
			rows,
			contract.TruncatePath(strings.Join(o.Columns, ","), 60),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d objects in %s\n", len(objects), path)
	return err
}

package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/huangsam/actimerge/internal/contract"
	"github.com/huangsam/actimerge/internal/loader"
	"github.com/huangsam/actimerge/internal/outwriter"
	"github.com/huangsam/actimerge/schema"
)

// RunBuilder carries one merge run through its stages using a builder pattern.
// Each stage checks the context before it starts.
type RunBuilder struct {
	ctx    context.Context
	cfg    *contract.Config
	inputs schema.Inputs
	logger *zap.Logger
	store  contract.RunStore
	writer *outwriter.OutWriter

	start   time.Time
	runID   int64
	signals map[schema.Variant]*schema.Table
	flags   *schema.Table
	header  string
	merged  map[schema.Variant]*schema.Table
	exports []schema.ExportSummary
}

// NewRunBuilder creates a builder for a run over inputs. A nil logger is
// replaced with a no-op logger; the run ledger is taken from ctx.
func NewRunBuilder(ctx context.Context, inputs schema.Inputs, cfg *contract.Config, logger *zap.Logger) *RunBuilder {
	return &RunBuilder{
		ctx:     ctx,
		cfg:     cfg,
		inputs:  inputs,
		logger:  contract.LoggerOrNop(logger),
		store:   runStoreFromContext(ctx),
		writer:  outwriter.NewOutWriter(),
		start:   time.Now(),
		signals: make(map[schema.Variant]*schema.Table, len(schema.AllVariants)),
		merged:  make(map[schema.Variant]*schema.Table, len(schema.AllVariants)),
	}
}

// BeginTracking opens a ledger entry when a run store is configured.
// Ledger failures are reported but never fail the run.
func (b *RunBuilder) BeginTracking() *RunBuilder {
	if b.store == nil {
		return b
	}
	params := b.cfg.Params()
	params["meta_path"] = b.inputs.MetaPath
	params["ms2_path"] = b.inputs.MS2Path
	params["csv_path"] = b.inputs.CSVPath
	params["output_prefix"] = b.inputs.OutputPrefix

	runID, err := b.store.BeginRun(b.start, params)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return b
	}
	b.runID = runID
	b.ctx = withRunID(b.ctx, runID)
	b.logger.Debug("run tracking started", zap.Int64("run_id", runID))
	return b
}

// LoadInputs reads both workspaces and the signal CSV, then reduces the
// indicator table into flags and computes the export header.
func (b *RunBuilder) LoadInputs() (*RunBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, stageErr(LoaderStage, "", err)
	}
	loc := b.location()

	meta, err := loader.ReadWorkspace(b.inputs.MetaPath)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MetaPath, err)
	}
	signal, err := loader.FrameAt(meta, loc, schema.SignalObjectPath...)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MetaPath, err)
	}
	grid, err := loader.FrameAt(meta, loc, schema.GridObjectPath...)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MetaPath, err)
	}
	b.logger.Debug("loaded metadata workspace",
		zap.String("path", b.inputs.MetaPath),
		zap.Int("signal_rows", signal.Len()),
		zap.Int("grid_rows", grid.Len()))

	ms2, err := loader.ReadWorkspace(b.inputs.MS2Path)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MS2Path, err)
	}
	indicators, err := loader.FrameAt(ms2, loc, schema.IndicatorObjectPath...)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MS2Path, err)
	}

	preImputed, err := loader.ReadCSV(b.inputs.CSVPath)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.CSVPath, err)
	}
	b.logger.Debug("loaded signal CSV", zap.String("path", b.inputs.CSVPath), zap.Int("rows", preImputed.Len()))

	for _, t := range []*schema.Table{signal, preImputed} {
		if err := t.Require(b.cfg.TimestampColumn); err != nil {
			return nil, stageErr(LoaderStage, t.Name, err)
		}
		if err := t.RequireNumeric(b.cfg.SignalColumn); err != nil {
			return nil, stageErr(LoaderStage, t.Name, err)
		}
	}

	aligned, err := AlignIndicators(grid, b.cfg.TimestampColumn, indicators)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MS2Path, err)
	}
	b.flags, err = ReduceFlags(aligned, b.cfg.TimestampColumn, b.cfg.IndicatorColumns)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MS2Path, err)
	}

	first, last, err := SignalSpan(signal, b.cfg.TimestampColumn, loc)
	if err != nil {
		return nil, stageErr(LoaderStage, b.inputs.MetaPath, err)
	}
	b.header = FormatHeader(first, last, b.cfg.SampleRate)

	b.signals[schema.ImputedVariant] = preImputed
	b.signals[schema.OriginalVariant] = signal
	return b, nil
}

// MergeVariants as-of merges each signal variant against the flag table.
func (b *RunBuilder) MergeVariants() (*RunBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, stageErr(MergeStage, "", err)
	}
	opts := MergeOptions{On: b.cfg.TimestampColumn, Location: b.location()}
	for _, variant := range schema.AllVariants {
		signal := b.signals[variant]
		merged, err := MergeAsOf(signal, b.flags, opts)
		if err != nil {
			return nil, stageErr(MergeStage, signal.Name, err)
		}
		b.merged[variant] = merged
		b.logger.Debug("merged variant",
			zap.String("variant", string(variant)),
			zap.Int("rows", merged.Len()),
			zap.Int("flag_rows", b.flags.Len()))
	}
	return b, nil
}

// WriteExports formats and writes one export per variant.
func (b *RunBuilder) WriteExports() (*RunBuilder, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, stageErr(WriterStage, "", err)
	}
	opts := ExportOptions{On: b.cfg.TimestampColumn, SignalColumn: b.cfg.SignalColumn, Scale: b.cfg.Scale}
	for _, variant := range schema.AllVariants {
		path := contract.ExportPath(b.inputs.OutputPrefix, variant, b.cfg.Format)
		frame, err := BuildExport(variant, b.merged[variant], b.header, opts)
		if err != nil {
			return nil, stageErr(WriterStage, path, err)
		}
		if err := b.writer.WriteExport(frame, path, b.cfg.Format); err != nil {
			return nil, stageErr(WriterStage, path, err)
		}
		summary := Summarize(frame, path)
		b.exports = append(b.exports, summary)
		b.recordExport(summary)
		b.logger.Debug("wrote export",
			zap.String("path", path),
			zap.Int("rows", summary.Rows),
			zap.Int("imputed_rows", summary.ImputedRows))
	}
	return b, nil
}

// Result closes the ledger entry and returns the run summary.
func (b *RunBuilder) Result() *schema.RunSummary {
	signalRows := b.closeRun()
	return &schema.RunSummary{
		RunID:      getRunID(b.ctx),
		Inputs:     b.inputs,
		Header:     b.header,
		SignalRows: signalRows,
		FlagRows:   b.flags.Len(),
		Exports:    b.exports,
		Duration:   time.Since(b.start),
	}
}

// closeRun stamps the end time on the ledger entry, if one was started, and
// returns the number of signal rows loaded so far.
func (b *RunBuilder) closeRun() int {
	signalRows := 0
	if signal := b.signals[schema.OriginalVariant]; signal != nil {
		signalRows = signal.Len()
	}
	if b.store != nil && b.runID > 0 {
		if err := b.store.EndRun(b.runID, time.Now(), signalRows); err != nil {
			contract.LogWarn("Failed to finalize run tracking", err)
		}
	}
	return signalRows
}

func (b *RunBuilder) recordExport(summary schema.ExportSummary) {
	if b.store == nil || b.runID == 0 {
		return
	}
	if err := b.store.RecordExport(b.runID, summary); err != nil {
		logTrackingError("RecordExport", summary.Path, err)
	}
}

func (b *RunBuilder) location() *time.Location {
	if b.cfg.Location == nil {
		return time.UTC
	}
	return b.cfg.Location
}

// logTrackingError logs ledger errors to stderr without disrupting the run.
func logTrackingError(operation, path string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, path), err)
}

// ProcessFiles runs the whole pipeline over explicit inputs: load, reduce
// flags, merge both signal variants and write both exports.
func ProcessFiles(ctx context.Context, inputs schema.Inputs, cfg *contract.Config, logger *zap.Logger) (*schema.RunSummary, error) {
	if err := contract.ValidateInputs(inputs); err != nil {
		return nil, stageErr(LoaderStage, "", err)
	}
	run := NewRunBuilder(ctx, inputs, cfg, logger).BeginTracking()

	b, err := run.LoadInputs()
	if err == nil {
		b, err = b.MergeVariants()
	}
	if err == nil {
		b, err = b.WriteExports()
	}
	if err != nil {
		// Failed runs are closed too.
		run.closeRun()
		return nil, err
	}
	return b.Result(), nil
}

// ExecuteMerge runs ProcessFiles over the configured inputs and prints the
// run summary. It serves as the main entry point for the root command.
func ExecuteMerge(ctx context.Context, cfg *contract.Config, logger *zap.Logger) error {
	summary, err := ProcessFiles(ctx, cfg.Inputs, cfg, logger)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteSummary(summary, cfg)
}

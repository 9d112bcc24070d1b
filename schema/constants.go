package schema

// Custom string types for type safety.
type (
	// ExportFormat represents the file format of the merged exports.
	ExportFormat string

	// SummaryMode represents how the run summary is printed.
	SummaryMode string

	// DatabaseBackend represents the database backend for the run ledger.
	DatabaseBackend string

	// Variant identifies which signal series an export was built from.
	Variant string
)

// All export formats supported.
const (
	CSVFormat     ExportFormat = "csv" // default
	ParquetFormat ExportFormat = "parquet"
)

// All summary modes supported.
const (
	TextSummary SummaryMode = "text" // default
	JSONSummary SummaryMode = "json"
	NoSummary   SummaryMode = "none"
)

// All ledger backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// Both export variants. The value doubles as the output file suffix.
const (
	ImputedVariant  Variant = "imputed" // pre-imputed signal from the CSV
	OriginalVariant Variant = "orig"    // signal from the metadata workspace
)

// Column and object names used by the merge pipeline.
const (
	DefaultTimestampColumn = "timestamp"
	DefaultSignalColumn    = "ENMO"
	FlagColumn             = "imputed"
	ValueColumnPrefix      = "acceleration (mg)"
)

// DefaultIndicatorColumns are OR-reduced into the imputation flag.
var DefaultIndicatorColumns = []string{"r1", "r3"}

// Object paths inside the R workspaces.
var (
	SignalObjectPath    = []string{"M", "metashort"}
	GridObjectPath      = []string{"M", "metalong"}
	IndicatorObjectPath = []string{"IMP", "rout"}
)

// AllVariants lists the exports produced by every run, in write order.
var AllVariants = []Variant{ImputedVariant, OriginalVariant}

// ValidExportFormats lists all valid export formats.
var ValidExportFormats = map[ExportFormat]struct{}{
	CSVFormat:     {},
	ParquetFormat: {},
}

// ValidSummaryModes lists all valid summary modes.
var ValidSummaryModes = map[SummaryMode]struct{}{
	TextSummary: {},
	JSONSummary: {},
	NoSummary:   {},
}

// ValidDatabaseBackends lists all valid ledger backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/actimerge/core"
	"github.com/huangsam/actimerge/internal/outwriter"
)

// inspectCmd lists what an R workspace holds.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file.RData>",
	Short: "List the objects stored in an R workspace",
	Long: `Decode an RData or RDS file and list its objects.

Each row shows the object path (e.g. M$metashort), its R type, class and
length. Data frames also report their row count and column names, which
helps when a merge fails on a missing column.

Examples:
  # Look inside a GGIR part 1 workspace
  actimerge inspect meta_p01.csv.RData

  # Descend one level only, as JSON
  actimerge inspect --depth 1 --json p01.csv.RData`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := readConfigFile(); err != nil {
			return err
		}
		objects, err := core.InspectWorkspace(args[0], viper.GetInt("depth"))
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter().WriteObjects(args[0], objects, viper.GetBool("json"))
	},
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/directory"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup of all entries",
	Long: `Dumps every entry as JSON or YAML when the collection changed since the
last export (or always with --force). Without --out the file is written to
export.dir with a timestamped name; --out - writes to stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		force, _ := cmd.Flags().GetBool("force")

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := directory.New(st, nil, nil, directory.Options{})

		var buf bytes.Buffer
		written, err := svc.Export(ctx, &buf, format, force)
		if err != nil {
			return err
		}
		if !written {
			cmd.Println("no changes since the last export")
			return nil
		}

		if out == "-" {
			_, err := buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		if out == "" {
			out = exportPath(cfg.Export.Dir, format, time.Now().UTC())
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "export: create directory")
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return eris.Wrap(err, "export: write file")
		}

		zap.L().Info("backup written", zap.String("path", out), zap.Int("bytes", buf.Len()))
		return nil
	},
}

// exportPath names a backup file inside dir.
func exportPath(dir, format string, at time.Time) string {
	return filepath.Join(dir, "entries-"+at.Format("20060102-150405")+"."+format)
}

func init() {
	exportCmd.Flags().String("format", directory.FormatJSON, "json or yaml")
	exportCmd.Flags().String("out", "", "output file, - for stdout (default: timestamped file in export.dir)")
	exportCmd.Flags().Bool("force", false, "export even when nothing changed")
	rootCmd.AddCommand(exportCmd)
}

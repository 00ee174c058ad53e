package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/gazetteer"
	"github.com/sells-group/provider-directory/internal/geo"
)

var geodataCmd = &cobra.Command{
	Use:   "geodata",
	Short: "Manage the gazetteer used to resolve place names",
}

var geodataLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import gazetteer records from a TSV file or a point shapefile",
	Long: `Reads place records and upserts them into the gazetteer by id.

TSV files need a header row naming at least id and name; ascii, plz, level,
lat, lng, ref_lat and ref_lng are optional. Shapefiles carry the same
attributes and use the point geometry as location.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		file, _ := cmd.Flags().GetString("file")
		format, _ := cmd.Flags().GetString("format")
		batch, _ := cmd.Flags().GetInt("batch-size")

		read, err := geodataReader(file, format)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := gazetteer.Import(ctx, read, st, batch)
		if err != nil {
			return eris.Wrapf(err, "geodata load %s", file)
		}
		zap.L().Info("gazetteer loaded", zap.String("file", file), zap.Int64("rows", n))
		return nil
	},
}

var geodataSearchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Resolve a place name the way entry queries do",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		places := geo.NewResolver(st, cfg.Query.GeoCandidates).FindLocation(ctx, strings.Join(args, " "))
		if len(places) == 0 {
			return eris.Errorf("no place matches %q", strings.Join(args, " "))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(places)
	},
}

// geodataReader picks the record reader for file. An empty format is
// derived from the file extension.
func geodataReader(file, format string) (gazetteer.Reader, error) {
	if file == "" {
		return nil, eris.New("--file is required")
	}
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}

	switch format {
	case "tsv", "txt":
		return func(ctx context.Context, out chan<- geo.Record) error {
			f, err := os.Open(file)
			if err != nil {
				return eris.Wrapf(err, "open %s", file)
			}
			defer f.Close() //nolint:errcheck
			return gazetteer.ReadTSV(ctx, f, out)
		}, nil
	case "shp":
		return func(ctx context.Context, out chan<- geo.Record) error {
			return gazetteer.ReadShapefile(ctx, file, out)
		}, nil
	default:
		return nil, eris.Errorf("unsupported geodata format %q (want tsv or shp)", format)
	}
}

func init() {
	geodataLoadCmd.Flags().String("file", "", "path to a .tsv file or .shp shapefile")
	geodataLoadCmd.Flags().String("format", "", "tsv or shp (default from file extension)")
	geodataLoadCmd.Flags().Int("batch-size", gazetteer.DefaultBatchSize, "records upserted per round trip")

	geodataCmd.AddCommand(geodataLoadCmd, geodataSearchCmd)
	rootCmd.AddCommand(geodataCmd)
}

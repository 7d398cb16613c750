package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/keyword-cli/internal/model"
	"github.com/sells-group/keyword-cli/internal/scorer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster, score and rank one keyword file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		req, err := buildRequest(cmd.Flags(), file)
		if err != nil {
			return err
		}

		noStore, _ := cmd.Flags().GetBool("no-store")
		env, err := initPipeline(ctx, "run", !noStore, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		outDir, _ := cmd.Flags().GetString("output-dir")
		if outDir == "" {
			outDir = cfg.KRA.OutputDir
		}
		if outDir != "" {
			path, err := writeResult(outDir, result)
			if err != nil {
				return err
			}
			zap.L().Info("result written", zap.String("path", path))
		}

		// Print result JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// addRequestFlags registers the per-run overrides shared by run and batch.
func addRequestFlags(fs *pflag.FlagSet) {
	fs.String("brand", "", "brand name (default from config)")
	fs.String("product", "", "product name (default from config)")
	fs.String("locale", "", "locale tag stamped on every record")
	fs.Int("k", 0, "number of clusters (0 = automatic)")
	fs.Int("top", 0, "number of ranked clusters to keep")
	fs.Int("max-rows", 0, "max input rows to read")
	fs.Int("member-limit", 0, "keywords per cluster sent to topic generation")
	fs.String("weights", "", "YAML file with a top-level weights mapping")
	fs.Bool("skip-topics", false, "skip topic generation")
}

// buildRequest starts from the configured defaults and applies any flags
// the user set explicitly.
func buildRequest(fs *pflag.FlagSet, file string) (model.RunRequest, error) {
	req := cfg.KRA.Request(file)

	if fs.Changed("brand") {
		req.Brand, _ = fs.GetString("brand")
	}
	if fs.Changed("product") {
		req.Product, _ = fs.GetString("product")
	}
	if fs.Changed("locale") {
		req.Locale, _ = fs.GetString("locale")
	}
	if fs.Changed("k") {
		req.ClusteringK, _ = fs.GetInt("k")
	}
	if fs.Changed("top") {
		req.TopClusters, _ = fs.GetInt("top")
	}
	if fs.Changed("max-rows") {
		req.MaxRows, _ = fs.GetInt("max-rows")
	}
	if fs.Changed("member-limit") {
		req.MemberLimit, _ = fs.GetInt("member-limit")
	}
	req.SkipTopics, _ = fs.GetBool("skip-topics")

	if path, _ := fs.GetString("weights"); path != "" {
		w, err := scorer.LoadWeightsFile(path)
		if err != nil {
			return model.RunRequest{}, err
		}
		req.Weights = w
	}
	return req, nil
}

// writeResult stores result as kra_result_<run_id>.json under dir.
func writeResult(dir string, result *model.RunResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "create output dir %s", dir)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "marshal result")
	}
	path := filepath.Join(dir, fmt.Sprintf("kra_result_%s.json", result.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "write result %s", path)
	}
	return path, nil
}

func init() {
	runCmd.Flags().String("file", "", "keyword export (.csv, .tsv, .txt or .xlsx); falls back to the data dir")
	runCmd.Flags().String("output-dir", "", "directory for the JSON result (default from config)")
	runCmd.Flags().Bool("no-store", false, "do not record the run in the run store")
	addRequestFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

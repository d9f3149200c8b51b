package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tradelens/ecomplexity/pkg/core/complexity"
	"github.com/tradelens/ecomplexity/pkg/core/economy"
	"github.com/tradelens/ecomplexity/pkg/core/outlook"
	"github.com/tradelens/ecomplexity/pkg/core/proximity"
	"github.com/tradelens/ecomplexity/pkg/graphio"
	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

// computeOpts holds the command-line flags for the compute command.
type computeOpts struct {
	input  inputOpts
	tuning tuningOpts
	output string // output file path (stdout if empty)
}

// computeResult is the JSON document written by the compute command.
// Networks are embedded in node-link form so the output is self-contained.
type computeResult struct {
	RunID          string             `json:"run_id"`
	Matrix         *economy.Matrix    `json:"matrix"`
	Specialization *economy.Matrix    `json:"specialization"`
	Complexity     *complexity.Result `json:"complexity"`
	Proximity      *proximity.Result  `json:"proximity"`
	CountryNetwork json.RawMessage    `json:"country_network"`
	ProductNetwork json.RawMessage    `json:"product_network"`
	Outlook        *outlook.Result    `json:"outlook"`
}

// newComputeCmd creates the compute command that runs the full pipeline.
// It reads a trade dataset (CSV or JSON), computes every measure, and writes
// a single JSON document with all results.
func newComputeCmd() *cobra.Command {
	var opts computeOpts

	cmd := &cobra.Command{
		Use:   "compute [file]",
		Short: "Run the full complexity pipeline on a trade dataset",
		Long: `Run the full complexity pipeline on a trade dataset.

The pipeline aggregates the dataset into a country×product matrix, computes
the Balassa specialization matrix, country and product complexity indices,
proximity matrices, projected networks, and outlook indicators.

Examples:
  ecomplexity compute trade.csv                      # All defaults
  ecomplexity compute trade.csv -m reflections       # Method of reflections
  ecomplexity compute trade.csv --continuous         # Raw Balassa ratios
  ecomplexity compute -o results.json                # Input path from ecomplexity.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runCompute(cmd, arg, &opts)
		},
	}

	opts.input.addFlags(cmd)
	opts.tuning.addBalassaFlags(cmd)
	opts.tuning.addComplexityFlags(cmd)
	opts.tuning.addProjectionFlags(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

// runCompute executes the pipeline and writes the result document.
func runCompute(cmd *cobra.Command, arg string, opts *computeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, rows, cols, err := opts.input.load(arg)
	if err != nil {
		return err
	}
	logger.Debugf("Loaded %d rows", len(rows))

	runner, err := newRunner(ctx, cfg, opts.input.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.tuning.options(cmd, cfg, &opts.input)
	popts.Rows = rows
	popts.Columns = cols

	prog := newProgress(logger)
	res, err := runner.Execute(ctx, popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Computed %d countries × %d products", res.Stats.CountryCount, res.Stats.ProductCount))
	printStats(res.Stats.CountryCount, res.Stats.ProductCount, fullyCached(res.CacheInfo))

	if err := writeResult(res, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printFile(opts.output)
		printNextStep("Inspect rankings", "ecomplexity rank "+arg)
	}
	return nil
}

// fullyCached reports whether every stage of the run came from cache.
func fullyCached(info pipeline.CacheInfo) bool {
	return info.MatrixHit && info.BalassaHit && info.ComplexityHit &&
		info.ProximityHit && info.ProjectionHit && info.OutlookHit
}

// writeResult serializes the pipeline result as JSON to path (or stdout if empty).
func writeResult(res *pipeline.Result, path string) error {
	countryNet, err := graphio.Marshal(res.CountryNetwork)
	if err != nil {
		return err
	}
	productNet, err := graphio.Marshal(res.ProductNetwork)
	if err != nil {
		return err
	}

	doc := computeResult{
		RunID:          res.RunID,
		Matrix:         res.Matrix,
		Specialization: res.Specialization,
		Complexity:     res.Complexity,
		Proximity:      res.Proximity,
		CountryNetwork: countryNet,
		ProductNetwork: productNet,
		Outlook:        res.Outlook,
	}

	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// specializationMatrix runs the first two pipeline stages (matrix build and
// Balassa transform) shared by the rank and graph commands.
func specializationMatrix(ctx context.Context, runner *pipeline.Runner, popts pipeline.Options) (*economy.Matrix, error) {
	m, err := runner.Build(ctx, popts)
	if err != nil {
		return nil, err
	}
	return runner.Balassa(ctx, m, popts)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradelens/ecomplexity/pkg/errors"
	"github.com/tradelens/ecomplexity/pkg/graphio"
	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

// Output formats for the graph command.
const (
	formatJSON = "json"
	formatDOT  = "dot"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	input   inputOpts
	tuning  tuningOpts
	axis    string // "country" or "product"
	format  string // "json" or "dot"
	output  string // output file path (stdout if empty)
	weights bool   // label DOT edges with proximity values
}

// newGraphCmd creates the graph command that exports a projected proximity
// network. The network can be written as node-link JSON for further analysis
// or as Graphviz DOT for rendering.
func newGraphCmd() *cobra.Command {
	opts := graphOpts{axis: pipeline.AxisProduct, format: formatJSON}

	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Export a projected proximity network",
		Long: `Export a projected proximity network as JSON or Graphviz DOT.

Examples:
  ecomplexity graph trade.csv                          # Product space, JSON
  ecomplexity graph trade.csv --axis country           # Country space
  ecomplexity graph trade.csv -f dot -o product.dot    # DOT for Graphviz
  ecomplexity graph trade.csv --avg-links 4            # Trim to average degree 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatDOT {
				return errors.New(errors.ErrCodeUnsupported, "unknown format: %s (available: %s)",
					opts.format, strings.Join([]string{formatJSON, formatDOT}, ", "))
			}
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runGraph(cmd, arg, &opts)
		},
	}

	opts.input.addFlags(cmd)
	opts.tuning.addBalassaFlags(cmd)
	opts.tuning.addProjectionFlags(cmd)
	cmd.Flags().StringVar(&opts.axis, "axis", opts.axis, "network axis: product (default), country")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json (default), dot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.weights, "weights", false, "label DOT edges with proximity values")

	return cmd
}

// runGraph computes the proximity network for the requested axis and writes it.
func runGraph(cmd *cobra.Command, arg string, opts *graphOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, rows, cols, err := opts.input.load(arg)
	if err != nil {
		return err
	}

	runner, err := newRunner(ctx, cfg, opts.input.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.tuning.options(cmd, cfg, &opts.input)
	popts.Rows = rows
	popts.Columns = cols

	prog := newProgress(logger)
	spec, err := specializationMatrix(ctx, runner, popts)
	if err != nil {
		return err
	}
	prox, err := runner.ProximityMatrices(ctx, spec, popts)
	if err != nil {
		return err
	}

	proxMatrix := prox.Product
	if opts.axis == pipeline.AxisCountry {
		proxMatrix = prox.Country
	}
	net, err := runner.Project(ctx, proxMatrix, opts.axis, popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Projected %s network: %d nodes, %d links", opts.axis, net.Order(), net.Size()))

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	switch opts.format {
	case formatDOT:
		dot := graphio.NetworkToDOT(net, graphio.DOTOptions{
			Name:    opts.axis + " space",
			Weights: opts.weights,
		})
		if _, err := fmt.Fprint(out, dot); err != nil {
			return err
		}
	default:
		if err := graphio.Write(net, out); err != nil {
			return err
		}
	}

	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}

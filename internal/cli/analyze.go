package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tradelens/ecomplexity/pkg/core/projection"
	"github.com/tradelens/ecomplexity/pkg/pipeline"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	input      inputOpts
	tuning     tuningOpts
	axis       string  // "country" or "product"
	resolution float64 // community detection resolution
	top        int     // centrality rows to show
	output     string  // JSON report file (terminal report if empty)
}

// analysisReport is the JSON document written by analyze --output.
type analysisReport struct {
	Axis        string             `json:"axis"`
	Nodes       int                `json:"nodes"`
	Links       int                `json:"links"`
	Degree      map[string]float64 `json:"degree"`
	Strength    map[string]float64 `json:"strength"`
	Betweenness map[string]float64 `json:"betweenness"`
	Communities [][]string         `json:"communities"`
	Components  [][]string         `json:"components"`
}

// newAnalyzeCmd creates the analyze command that reports network measures
// over a projected proximity network: degree, strength, betweenness
// centrality, modularity communities, and connected components.
func newAnalyzeCmd() *cobra.Command {
	opts := analyzeOpts{axis: pipeline.AxisProduct, resolution: 1.0, top: 10}

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a projected proximity network",
		Long: `Analyze a projected proximity network.

Reports degree, strength, and betweenness centrality per node, modularity
communities (Louvain, seeded for reproducibility), and connected components.

Examples:
  ecomplexity analyze trade.csv                        # Product space
  ecomplexity analyze trade.csv --axis country
  ecomplexity analyze trade.csv --avg-links 4 --seed 7
  ecomplexity analyze trade.csv -o report.json         # JSON report`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runAnalyze(cmd, arg, &opts)
		},
	}

	opts.input.addFlags(cmd)
	opts.tuning.addBalassaFlags(cmd)
	opts.tuning.addProjectionFlags(cmd)
	cmd.Flags().StringVar(&opts.axis, "axis", opts.axis, "network axis: product (default), country")
	cmd.Flags().Float64Var(&opts.resolution, "resolution", opts.resolution, "community detection resolution")
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "centrality rows to show (0 = all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write JSON report to file")

	return cmd
}

// runAnalyze projects the network for the requested axis and reports its measures.
func runAnalyze(cmd *cobra.Command, arg string, opts *analyzeOpts) error {
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
	popts.SetProjectionDefaults()

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

	communities, err := net.Communities(opts.resolution, popts.Seed)
	if err != nil {
		return err
	}
	report := analysisReport{
		Axis:        opts.axis,
		Nodes:       net.Order(),
		Links:       net.Size(),
		Degree:      net.Degree(),
		Strength:    net.Strength(),
		Betweenness: net.Betweenness(),
		Communities: communities,
		Components:  net.Components(),
	}
	prog.done(fmt.Sprintf("Analyzed %s network: %d nodes, %d links", opts.axis, report.Nodes, report.Links))

	if opts.output != "" {
		out, err := openOutput(opts.output)
		if err != nil {
			return err
		}
		defer out.Close()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		printFile(opts.output)
		return nil
	}

	printReport(net, &report, opts.top)
	return nil
}

// printReport renders the analysis report to the terminal.
func printReport(net *projection.Network, report *analysisReport, top int) {
	labels := net.Labels()
	degree := make([]float64, len(labels))
	strength := make([]float64, len(labels))
	betweenness := make([]float64, len(labels))
	for i, l := range labels {
		degree[i] = report.Degree[l]
		strength[i] = report.Strength[l]
		betweenness[i] = report.Betweenness[l]
	}

	printRanking("Degree (link count)", labels, degree, top)
	printRanking("Strength (summed proximity)", labels, strength, top)
	printRanking("Betweenness centrality", labels, betweenness, top)

	printNewline()
	fmt.Println(StyleTitle.Render(fmt.Sprintf("Communities (%d)", len(report.Communities))))
	for i, members := range report.Communities {
		printDetail("%d: %s", i+1, strings.Join(members, ", "))
	}

	printNewline()
	fmt.Println(StyleTitle.Render(fmt.Sprintf("Connected components (%d)", len(report.Components))))
	for i, members := range report.Components {
		printDetail("%d: %d nodes", i+1, len(members))
	}
}

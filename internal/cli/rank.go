package cli

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// rankOpts holds the command-line flags for the rank command.
type rankOpts struct {
	input    inputOpts
	tuning   tuningOpts
	top      int  // number of rows to show (0 = all)
	products bool // rank products by PCI instead of countries by ECI
}

// newRankCmd creates the rank command that prints complexity rankings.
// It runs the pipeline up to the complexity stage and prints a sorted table
// of country complexity (ECI) or product complexity (PCI) values.
func newRankCmd() *cobra.Command {
	opts := rankOpts{top: 20}

	cmd := &cobra.Command{
		Use:   "rank [file]",
		Short: "Print country or product complexity rankings",
		Long: `Print country or product complexity rankings.

Examples:
  ecomplexity rank trade.csv                 # Top 20 countries by ECI
  ecomplexity rank trade.csv --products      # Top 20 products by PCI
  ecomplexity rank trade.csv --top 0         # All countries`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runRank(cmd, arg, &opts)
		},
	}

	opts.input.addFlags(cmd)
	opts.tuning.addBalassaFlags(cmd)
	opts.tuning.addComplexityFlags(cmd)
	cmd.Flags().IntVar(&opts.top, "top", opts.top, "number of rows to show (0 = all)")
	cmd.Flags().BoolVar(&opts.products, "products", false, "rank products by PCI instead of countries by ECI")

	return cmd
}

// runRank computes the complexity indices and prints the ranking table.
func runRank(cmd *cobra.Command, arg string, opts *rankOpts) error {
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

	sp := newSpinnerWithContext(ctx, "Computing complexity indices...")
	sp.Start()

	spec, err := specializationMatrix(ctx, runner, popts)
	if err != nil {
		sp.Stop()
		return err
	}
	cx, err := runner.Complexity(ctx, spec, popts)
	if err != nil {
		sp.Stop()
		return err
	}
	sp.Stop()

	if opts.products {
		printRanking(fmt.Sprintf("Product complexity (%s)", cx.Method), cx.Products, cx.ProductIndex, opts.top)
	} else {
		printRanking(fmt.Sprintf("Country complexity (%s)", cx.Method), cx.Countries, cx.CountryIndex, opts.top)
	}
	return nil
}

// printRanking prints labels sorted by value (descending) as a styled table.
func printRanking(title string, labels []string, values []float64, top int) {
	type row struct {
		label string
		value float64
	}
	rows := make([]row, len(labels))
	for i, l := range labels {
		rows[i] = row{label: l, value: values[i]}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].value > rows[j].value })

	if top > 0 && top < len(rows) {
		rows = rows[:top]
	}

	width := 8
	for _, r := range rows {
		if len(r.label) > width {
			width = len(r.label)
		}
	}

	rankStyle := lipgloss.NewStyle().Foreground(colorDim).Width(5)
	labelStyle := lipgloss.NewStyle().Foreground(colorWhite).Width(width + 2)

	printNewline()
	fmt.Println(StyleTitle.Render(title))
	for i, r := range rows {
		fmt.Println(rankStyle.Render(fmt.Sprintf("%d.", i+1)) +
			labelStyle.Render(r.label) +
			StyleNumber.Render(fmt.Sprintf("%+.4f", r.value)))
	}
	printNewline()
}

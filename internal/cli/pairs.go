package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cdrc/internal/config"
)

// PairsOptions holds flags for the pairs command.
type PairsOptions struct {
	*RootOptions
	Models  []string
	CDROnly bool
}

// PairsResult lists the nested model comparisons of a config set.
type PairsResult struct {
	Models int                   `json:"models"`
	Pairs  []config.AblationPair `json:"pairs"`
}

// NewPairsCommand creates the pairs command.
func NewPairsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PairsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pairs <config>...",
		Short: "List nested ablation comparisons",
		Long: `List every pair of models that differ by one ablated variable.

Ablated models are named base!var1!var2. Two models form a pair when they
share a base and one ablates exactly one more variable than the other, so
they can be compared as nested models with one degree of freedom.

Example:
  cdrc pairs experiments/ -m 'CDR.*'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPairs(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Models, "model", "m", nil, "model name or full-match regex (repeatable)")
	cmd.Flags().BoolVar(&opts.CDROnly, "cdr-only", false, "keep only CDR and DTSR models")

	return cmd
}

func runPairs(opts *PairsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	models, err := LoadModels(args, opts.Models, opts.CDROnly)
	if err != nil {
		return failLoad(formatter, err)
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	result := PairsResult{Models: len(models), Pairs: config.AblationPairs(names)}
	opts.logger().Debug("ablation pairs", "models", result.Models, "pairs", len(result.Pairs))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if len(result.Pairs) == 0 {
		fmt.Fprintf(formatter.Writer, "No nested pairs among %d model(s).\n", result.Models)
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FULL\tABLATED\tVARIABLE")
	for _, p := range result.Pairs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Full, p.Ablated, p.Variable)
	}
	return tw.Flush()
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"careercoach/internal/errors"
	"careercoach/internal/schema"
	"careercoach/internal/types"

	"github.com/spf13/cobra"
)

var flowsCmd = &cobra.Command{
	Use:   "flows [name]",
	Short: "List available flows and their fields",
	Long: `Without arguments, list every flow with its input fields. Required
fields are marked with *.

With a flow name, print the JSON Schema of that flow's input and output.`,
	Args: cobra.MaximumNArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return flowNames(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listFlows(cmd.OutOrStdout())
		}
		flow, ok := types.ParseFlowName(args[0])
		if !ok {
			return errors.NewValidationError(errors.ErrCodeUnknownFlow,
				fmt.Sprintf("unknown flow %q", args[0]), nil)
		}
		return printFlowSchemas(cmd.OutOrStdout(), flow)
	},
}

func listFlows(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOW\tINPUT FIELDS\tDESCRIPTION")
	for _, flow := range types.AllFlows {
		schemas, _ := schema.ForFlow(flow)
		fields := ""
		for i, f := range schemas.Input.Fields {
			if i > 0 {
				fields += ", "
			}
			fields += f.Name
			if f.Required {
				fields += "*"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", flow, fields, schemas.Input.Description)
	}
	return tw.Flush()
}

func printFlowSchemas(w io.Writer, flow types.FlowName) error {
	schemas, _ := schema.ForFlow(flow)
	doc := map[string]any{
		"flow":   flow,
		"input":  schemas.Input.JSONSchema(),
		"output": schemas.Output.JSONSchema(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/graph"
	graphio "github.com/matzehuels/graphwriter/pkg/io"
)

// viewsCommand creates the views command, which lists the schema of a graph
// document.
func (c *CLI) viewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "views [graph.json]",
		Short: "List the types and property views of a graph document",
		Args:  graphFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := graphio.ImportJSON(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			counts := typeCounts(store)
			schema := store.Schema()
			types := schema.Types()
			for i, typeName := range types {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, StyleTitle.Render(typeName)+" "+StyleDim.Render(fmt.Sprintf("(%d nodes)", counts[typeName])))
				for _, view := range schema.Views(typeName) {
					printKeyValue(out, view, wireNames(schema.Keys(typeName, view)))
				}
			}
			if len(types) > 0 {
				fmt.Fprintln(out)
				printNextStep(out, "Serialize a type", fmt.Sprintf("%s serialize %s --type %s", appName, args[0], types[0]))
			}
			return nil
		},
	}
}

func typeCounts(store *graph.Store) map[string]int {
	counts := make(map[string]int)
	for _, n := range store.Nodes() {
		counts[n.TypeName]++
	}
	return counts
}

func wireNames(keys []graph.PropertyKey) string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.WireName()
		if k.Name() != k.WireName() {
			names[i] += StyleDim.Render(" (" + k.Name() + ")")
		}
	}
	return strings.Join(names, ", ")
}

package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/javagraph/javagraph/internal/serialize"
)

// QueryCommand holds the flags for the query command.
type QueryCommand struct {
	dir      string
	format   string
	tag      string
	property string
	id       string
}

// NewQueryCommand creates and configures the query command.
func NewQueryCommand() *cobra.Command {
	qc := &QueryCommand{}

	cobraCmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect a previously serialized graph snapshot",
		Long:  "Loads a snapshot written by analyze and filters its nodes by tag, property, or id.",
		RunE:  qc.Run,
	}

	cobraCmd.Flags().StringVar(&qc.dir, "dir", ".analysis", "directory holding the serialized snapshot")
	cobraCmd.Flags().StringVarP(&qc.format, "format", "f", "json", "snapshot format: json or yaml")
	cobraCmd.Flags().StringVar(&qc.tag, "tag", "", "show only nodes carrying this tag")
	cobraCmd.Flags().StringVar(&qc.property, "property", "", "show only nodes with this property key set")
	cobraCmd.Flags().StringVar(&qc.id, "id", "", "show only the node with this id")

	return cobraCmd
}

// Run executes the query command.
func (qc *QueryCommand) Run(_ *cobra.Command, _ []string) error {
	doc, err := serialize.Load(qc.dir, qc.format)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	nodes := qc.filterNodes(doc.Nodes)

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type < nodes[j].Type
		}

		return nodes[i].ID < nodes[j].ID
	})

	renderNodeTable(nodes)

	return nil
}

func (qc *QueryCommand) filterNodes(nodes []serialize.NodeDoc) []serialize.NodeDoc {
	var out []serialize.NodeDoc

	for _, n := range nodes {
		if qc.id != "" && n.ID != qc.id {
			continue
		}

		if qc.tag != "" && !hasTag(n.Tags, qc.tag) {
			continue
		}

		if qc.property != "" {
			if _, ok := n.Properties[qc.property]; !ok {
				continue
			}
		}

		out = append(out, n)
	}

	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}

	return false
}

func renderNodeTable(nodes []serialize.NodeDoc) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Type", "ID", "Tags", "Properties"})

	for _, n := range nodes {
		tbl.AppendRow(table.Row{n.Type, n.ID, strings.Join(n.Tags, ","), summarizeProperties(n.Properties)})
	}

	tbl.AppendFooter(table.Row{"", "", "", fmt.Sprintf("Total: %d node(s)", len(nodes))})

	fmt.Println(tbl.Render())
}

func summarizeProperties(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}

	return strings.Join(parts, " ")
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/racetrack/internal/schema"
)

// TypeInfo describes one registered type as it appears in documents.
type TypeInfo struct {
	Name      string   `json:"name"`
	Identity  []string `json:"identity"`
	Fields    []string `json:"fields"`
	Relations []string `json:"relations,omitempty"`
	Columns   []string `json:"columns,omitempty"`
}

// TypeList is the result of the types command.
type TypeList []TypeInfo

// RenderText implements TextRenderer.
func (l TypeList) RenderText(w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Type", "Identity", "Fields", "Relations"})
	for _, ti := range l {
		t.AppendRow(table.Row{
			ti.Name,
			strings.Join(ti.Identity, ", "),
			strings.Join(ti.Fields, ", "),
			strings.Join(ti.Relations, "\n"),
		})
	}
	t.Render()
	return nil
}

// NewTypesCommand creates the types command.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the exportable types",
		Long: `List every registered type with its identity fields, its exported
fields and its relations. In JSON output each type also lists the CSV
columns of its file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := describeTypes(rootOpts.Registry)
			if err != nil {
				return WrapExitError(ExitFailure, "describe types", err)
			}
			return rootOpts.formatter(cmd).Success(list)
		},
	}
}

func describeTypes(reg *schema.Registry) (TypeList, error) {
	var list TypeList
	for _, name := range reg.Names() {
		a, err := reg.Analyze(name)
		if err != nil {
			return nil, err
		}
		ti := TypeInfo{Name: name, Identity: a.IdentityNames(), Fields: []string{}}
		for _, f := range a.ExportedFields() {
			desc := f.Name + " " + f.Kind.String()
			if f.IsRef() {
				desc = f.Name + " -> " + f.Target
			}
			ti.Fields = append(ti.Fields, desc)
		}
		for _, f := range a.RelationFields() {
			ti.Relations = append(ti.Relations, fmt.Sprintf("%s -> %s (%s)", f.Name, f.Target, f.Class))
		}
		for _, c := range a.Columns() {
			ti.Columns = append(ti.Columns, c.Label)
		}
		list = append(list, ti)
	}
	return list, nil
}

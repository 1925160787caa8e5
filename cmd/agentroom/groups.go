package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/BaSui01/agentroom/agent"
	"github.com/BaSui01/agentroom/api"
)

// =============================================================================
// 📋 groups / agents 命令
// =============================================================================

func newGroupsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Inspect and create chat groups on a running server",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := newAPIClient(opts).ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			renderGroups(cmd.OutOrStdout(), groups)
			return nil
		},
	}

	var agents []string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := newAPIClient(opts).CreateGroup(cmd.Context(), args[0], agents)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %q with agents [%s]\n", g.Name, strings.Join(g.Agents, ", "))
			return nil
		},
	}
	create.Flags().StringSliceVar(&agents, "agents", nil, "Agent aliases, comma separated")

	cmd.AddCommand(list, create)
	return cmd
}

func newAgentsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent roster of a running server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := newAPIClient(opts).ListAgents(cmd.Context())
			if err != nil {
				return err
			}
			renderAgents(cmd.OutOrStdout(), specs)
			return nil
		},
	})
	return cmd
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderGroups(w io.Writer, groups []api.GroupSummary) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "no groups")
		return
	}
	table := newTable(w, "Name", "Agents", "Messages")
	for _, g := range groups {
		table.Append([]string{g.Name, strings.Join(g.Agents, ", "), strconv.Itoa(g.MessageCount)})
	}
	table.Render()
}

func renderAgents(w io.Writer, specs []agent.Spec) {
	if len(specs) == 0 {
		fmt.Fprintln(w, "no agents")
		return
	}
	table := newTable(w, "Alias", "Kind", "LLM", "Description")
	for _, s := range specs {
		table.Append([]string{s.Alias, string(s.Kind), s.LLM, truncate(s.Description, 60)})
	}
	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

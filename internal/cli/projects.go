package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/codefund/pkg/client"
)

func createListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns, newest first",
		Long: `List every campaign deployed by the factory.

EXAMPLES:
  codefund list
  codefund list --limit 5 --json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer())
			projects, err := c.ListProjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}
			if limit > 0 && len(projects) > limit {
				projects = projects[:limit]
			}
			return printProjects(cmd.OutOrStdout(), projects)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of campaigns to show (0 for all)")

	return cmd
}

func createInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <campaign-address>",
		Short: "Show campaign details and milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer())
			p, err := c.GetProject(cmd.Context(), args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("campaign %s not found", args[0])
				}
				return fmt.Errorf("failed to get project: %w", err)
			}
			return printDetail(cmd.OutOrStdout(), p)
		},
	}
}

func createCreatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "created <address>",
		Short: "List campaigns created by a developer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := client.New(getServer()).ListCreated(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list created projects: %w", err)
			}
			return printProjects(cmd.OutOrStdout(), projects)
		},
	}
}

func createContributedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contributed <address>",
		Short: "List campaigns an account has contributed to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := client.New(getServer()).ListContributed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to list contributed projects: %w", err)
			}
			return printProjects(cmd.OutOrStdout(), projects)
		},
	}
}

func printProjects(out io.Writer, projects []client.Project) error {
	if jsonOutput {
		return encodeJSON(out, map[string]any{
			"projects": projects,
			"count":    len(projects),
		})
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRAISED\tGOAL\tDEADLINE\tDAYS LEFT")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			p.CampaignAddress, p.Name, p.TotalRaisedEth.String(), p.FundingGoalEth.String(),
			p.DeadlineFormatted, p.DaysLeft)
	}
	return w.Flush()
}

func printDetail(out io.Writer, p *client.ProjectDetail) error {
	if jsonOutput {
		return encodeJSON(out, p)
	}

	fmt.Fprintf(out, "Name:         %s\n", p.Name)
	fmt.Fprintf(out, "Address:      %s\n", p.CampaignAddress)
	fmt.Fprintf(out, "Developer:    %s\n", p.DeveloperAddress)
	fmt.Fprintf(out, "Repository:   %s\n", p.GithubURL)
	fmt.Fprintf(out, "Raised:       %s / %s ETH\n", p.TotalRaisedEth.String(), p.FundingGoalEth.String())
	fmt.Fprintf(out, "Deadline:     %s (%d days left)\n", p.DeadlineFormatted, p.DaysLeft)
	fmt.Fprintf(out, "Contributors: %d\n", p.ContributorCount)
	if p.Description != "" {
		fmt.Fprintf(out, "\n%s\n", p.Description)
	}

	if len(p.Milestones) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tAMOUNT\tSTATUS\tPULL REQUEST")
	for i, m := range p.Milestones {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, m.AmountEth.String(), milestoneStatus(m), m.VerificationURL)
	}
	return w.Flush()
}

func milestoneStatus(m client.Milestone) string {
	switch {
	case m.FundsReleased:
		return "released"
	case m.Verified:
		return "verified"
	default:
		return "pending"
	}
}

func encodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

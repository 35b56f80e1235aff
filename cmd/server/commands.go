package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lovedemo/seedManage/internal/domain"
	"github.com/lovedemo/seedManage/internal/normalize"
	"github.com/lovedemo/seedManage/internal/search"
)

func newSearchCommand(c *cli) *cobra.Command {
	var (
		adapterID string
		page      int
		pageSize  int
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "search <query or magnet>",
		Short: "Run one search and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := buildRegistry(c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("configure adapters: %w", err)
			}
			service := search.NewService(reg,
				search.WithLogger(c.logger),
				search.WithPageSize(c.cfg.PageSize),
			)
			outcome, err := service.Search(cmd.Context(), domain.SearchRequest{
				Query:     strings.Join(args, " "),
				AdapterID: adapterID,
				Page:      page,
				PageSize:  pageSize,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndentedJSON(out, outcome.Response())
			}
			return printOutcome(out, outcome)
		},
	}
	cmd.Flags().StringVar(&adapterID, "adapter", "", "adapter id (defaults to the configured default)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "results per page (0 uses the configured size)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func newAdaptersCommand(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List the registered search adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := buildRegistry(c.cfg, c.logger)
			if err != nil {
				return fmt.Errorf("configure adapters: %w", err)
			}
			list := reg.List()
			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndentedJSON(out, domain.AdapterList{Adapters: list, DefaultAdapter: reg.DefaultID()})
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tROLE\tNAME\tENDPOINT")
			for _, info := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, reg.Role(info.ID), info.Name, info.Endpoint)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newHistoryCommand(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches from the configured history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := openHistory(cmd.Context(), c.cfg, c.logger)
			defer store.Close()
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeIndentedJSON(out, map[string]any{"history": entries})
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tMODE\tADAPTER\tRESULTS\tQUERY")
			for _, entry := range entries {
				adapter := entry.Meta.Adapter
				if entry.Meta.FallbackUsed {
					adapter += "->" + entry.Meta.FallbackAdapter
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Mode, adapter, entry.Meta.ResultCount, entry.Query)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printOutcome(out io.Writer, outcome domain.SearchOutcome) error {
	source := outcome.AdapterUsed
	if outcome.FallbackUsed {
		source = fmt.Sprintf("%s (fallback from %s)", outcome.FallbackAdapterID, outcome.AdapterUsed)
	}
	fmt.Fprintf(out, "%d result(s) from %s in %dms, page %d\n",
		outcome.ResultCount, source, outcome.ElapsedMS, outcome.CurrentPage)
	if outcome.PrimaryError != "" {
		fmt.Fprintf(out, "adapter error: %s\n", outcome.PrimaryError)
	}
	if outcome.FallbackError != "" {
		fmt.Fprintf(out, "fallback error: %s\n", outcome.FallbackError)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tSIZE\tSEEDS\tCATEGORY\tMAGNET")
	for _, item := range outcome.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			item.Title, sizeText(item), intText(item.Seeders), item.Category, item.Magnet)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if outcome.HasNextPage {
		fmt.Fprintf(out, "more results: --page %d\n", outcome.CurrentPage+1)
	}
	return nil
}

func sizeText(item domain.ResourceDescriptor) string {
	if item.SizeLabel != "" {
		return item.SizeLabel
	}
	if item.Size != nil {
		return normalize.FormatSize(*item.Size)
	}
	return "-"
}

func intText(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func writeIndentedJSON(out io.Writer, payload any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

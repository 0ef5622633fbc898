package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/hot100-crawler/internal/billboard"
)

func newYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "Lists the years available in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			years, err := appInstance.Navigator().ListYears(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), years)
		},
	}
}

func newDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates [year...]",
		Short: "Lists chart URLs for the given years (all years when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			nav := appInstance.Navigator()
			years, err := nav.ListYears(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) > 0 {
				years = slices.DeleteFunc(years, func(y billboard.YearEntry) bool {
					return !slices.Contains(args, y.Year)
				})
				if len(years) == 0 {
					return fmt.Errorf("no archive years match %s", strings.Join(args, ", "))
				}
			}
			dates, err := nav.ListChartDates(cmd.Context(), years)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), dates)
		},
	}
}

func newChartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chart <url|date>",
		Short: "Extracts one chart, given its URL or a date such as 1958-08-04",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			target := strings.TrimSpace(args[0])
			if !strings.Contains(target, "://") {
				target = billboard.ChartURL(appInstance.Config().BaseURL(), target)
			}
			page, err := appInstance.Extractor().GetTop100(cmd.Context(), target)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
}

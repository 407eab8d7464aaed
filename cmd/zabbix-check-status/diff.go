package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hardened-user/zabbix-check-status/internal/logging"
	"github.com/hardened-user/zabbix-check-status/internal/report"
)

var diffCmd = &cobra.Command{
	Use:   "diff <previous> <current>",
	Short: "Compare two run reports and show what changed",
	Long: `Compare two reports written with --report (YAML or JSON) and list the
entities that became broken, the ones that recovered, and how many are still
broken.

With --output the comparison is also written as a markdown report.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		failOnNew, _ := cmd.Flags().GetBool("fail-on-new")

		previous, err := report.Read(args[0])
		if err != nil {
			return fmt.Errorf("loading previous report: %w", err)
		}
		current, err := report.Read(args[1])
		if err != nil {
			return fmt.Errorf("loading current report: %w", err)
		}

		fmt.Printf("[*] Previous: run %s, %d findings\n", previous.ID, len(previous.Findings))
		fmt.Printf("[*] Current:  run %s, %d findings\n", current.ID, len(current.Findings))

		delta := report.Compare(previous, current)
		report.NewPrinter(os.Stdout, logging.ColorEnabled(noColor, os.Stdout)).Delta(delta)

		if output != "" {
			if err := os.WriteFile(output, []byte(report.DiffMarkdown(delta)), 0644); err != nil {
				return fmt.Errorf("writing diff report to %s: %w", output, err)
			}
			fmt.Printf("[+] Diff report: %s\n", output)
		}

		if failOnNew && len(delta.New) > 0 {
			return fmt.Errorf("%d newly broken entities", len(delta.New))
		}
		return nil
	},
}

func init() {
	diffCmd.Flags().StringP("output", "o", "", "write the diff as markdown to this file")
	diffCmd.Flags().Bool("fail-on-new", false, "exit 1 when new broken entities appeared")
	rootCmd.AddCommand(diffCmd)
}

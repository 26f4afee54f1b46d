package cmd

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"steadydb/internal/cli"
	"steadydb/internal/storage"
	"steadydb/internal/tui/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse previous load test runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.List(viper.GetInt("limit"))
		if err != nil {
			return err
		}

		if viper.GetBool("plain") {
			printHistory(cmd.OutOrStdout(), items)
			return nil
		}
		_, err = tea.NewProgram(history.NewModel(items)).Run()
		return err
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the report of one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.Get(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run    : %s\n", item.ID)
		fmt.Fprintf(out, "Started: %s\n", item.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "Target : %s\n", item.Target)
		fmt.Fprintf(out, "Config : %d qps, %d threads, %s\n", item.Config.TargetQPS, item.Config.Workers, item.Config.Duration)
		cli.PrintSummary(out, item.Summary, nil, item.Summary.Elapsed < item.Config.Duration)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)

	historyCmd.Flags().Int("limit", 50, "number of most recent runs to show (0 = all)")
	historyCmd.Flags().Bool("plain", false, "print a plain table instead of the interactive view")
}

func openHistoryStore() (*storage.Store, error) {
	path, err := storage.DefaultPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

func printHistory(out io.Writer, items []storage.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return
	}

	fmt.Fprintf(out, "%-36s  %-19s  %-30s  %8s  %8s  %8s\n", "ID", "TIME", "TARGET", "QUERIES", "SUCCESS", "QPS")
	fmt.Fprintln(out, strings.Repeat("-", 120))
	for i, row := range history.Rows(items) {
		fmt.Fprintf(out, "%-36s  %-19s  %-30s  %8s  %8s  %8s\n", items[i].ID, row[0], row[1], row[4], row[5], row[7])
	}
}

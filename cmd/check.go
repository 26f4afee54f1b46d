package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"steadydb/internal/db"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test the MySQL connection and print server details",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := dbConfig()
		cfg.MaxOpenConns = 1
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "🔍 Testing MySQL connection to %s...\n", cfg.Target())

		pool, err := db.Open(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		ctx := cmd.Context()
		if timeout := viper.GetDuration("connect-timeout"); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, 3*timeout)
			defer cancel()
		}

		info, err := db.NewInspector(pool).Inspect(ctx, cfg.Table, cfg.User)
		if err != nil {
			return fmt.Errorf("connection check failed: %w", err)
		}

		fmt.Fprintf(out, "✅ Connected! MySQL version: %s\n", info.Version)
		fmt.Fprintf(out, "📊 Table %s has %d rows\n", cfg.Table, info.Rows)
		for _, u := range info.Users {
			fmt.Fprintf(out, "🔐 User: %s@%s, Plugin: %s\n", u.User, u.Host, u.Plugin)
		}
		for _, w := range info.Warnings {
			fmt.Fprintf(out, "⚠️  %s\n", w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

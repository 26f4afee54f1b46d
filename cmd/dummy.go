package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"steadydb/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run a load test against a simulated database",
	Long: fmt.Sprintf(`Runs the harness against an in-process simulated database, for dry runs
without a MySQL server. Latency profiles: %s.`, strings.Join(dummy.Profiles(), ", ")),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := viper.GetString("profile")
		profile, err := dummy.LookupProfile(name)
		if err != nil {
			return err
		}

		var opts []dummy.Option
		if viper.GetBool("down") {
			opts = append(opts, dummy.Down())
		}
		if seed := viper.GetUint64("seed"); seed != 0 {
			opts = append(opts, dummy.WithSeed(seed))
		}

		sim := dummy.New(profile, opts...)
		return runLoad(cmd, sim, sim, "dummy:"+name)
	},
}

func init() {
	rootCmd.AddCommand(dummyCmd)

	addRunFlags(dummyCmd.Flags())
	dummyCmd.Flags().StringP("profile", "p", "fast", "latency profile of the simulated database")
	dummyCmd.Flags().Bool("down", false, "simulate an unreachable server")
	dummyCmd.Flags().Uint64("seed", 0, "seed for reproducible simulated latencies (0 = random)")
}

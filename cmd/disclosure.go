package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"steadydb/internal/disclosure"
)

var errInvalidFacts = errors.New("invalid disclosure files")

var disclosureCmd = &cobra.Command{
	Use:   "disclosure",
	Short: "Work with corporate disclosure (relevant fact) records",
}

var disclosureValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate JSON relevant fact records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		invalid := 0

		for _, path := range args {
			if err := validateFacts(path); err != nil {
				invalid++
				fmt.Fprintf(out, "❌ %s\n", path)
				var merr *multierror.Error
				if errors.As(err, &merr) {
					for _, e := range merr.Errors {
						fmt.Fprintf(out, "   - %v\n", e)
					}
				} else {
					fmt.Fprintf(out, "   - %v\n", err)
				}
				continue
			}
			fmt.Fprintf(out, "✅ %s\n", path)
		}

		if invalid > 0 {
			return fmt.Errorf("%w: %d of %d", errInvalidFacts, invalid, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disclosureCmd)
	disclosureCmd.AddCommand(disclosureValidateCmd)
}

func validateFacts(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	facts, err := disclosure.Decode(f)
	if err != nil {
		return err
	}

	var result *multierror.Error
	for i, fact := range facts {
		if err := fact.Validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("fact %d (%s): %w", i, fact.Company, err))
		}
	}
	return result.ErrorOrNil()
}

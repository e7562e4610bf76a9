package commands

import (
	"context"

	"bannerssb/lib/banner"

	"github.com/spf13/cobra"
)

var lookupSearch string

type lookupFunc func(ctx context.Context, opts banner.ListOptions) ([]banner.CodeDescription, error)

// lookupCommand lists a code/description resource that needs no term.
func lookupCommand(use, short string, lookup func() lookupFunc) *cobra.Command {
	return withClient(&cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := lookup()(cmd.Context(), banner.ListOptions{Search: lookupSearch})
			if err != nil {
				return err
			}
			return printCodeDescriptions(records)
		},
	})
}

var subjectsCmd = withClient(&cobra.Command{
	Use:   "subjects <term>",
	Short: "Lists the subjects offered in a term.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjects, err := client.GetSubjects(cmd.Context(), args[0], banner.ListOptions{Search: lookupSearch})
		if err != nil {
			return err
		}
		return printCodeDescriptions(subjects)
	},
})

func init() {
	rootCmd.PersistentFlags().StringVar(&lookupSearch, "search", "", "Filter lookups by code or description.")

	rootCmd.AddCommand(
		lookupCommand("terms", "Lists the terms with a class search.", func() lookupFunc { return client.GetTerms }),
		subjectsCmd,
		lookupCommand("campuses", "Lists campuses.", func() lookupFunc { return client.GetCampuses }),
		lookupCommand("colleges", "Lists colleges.", func() lookupFunc { return client.GetColleges }),
		lookupCommand("attributes", "Lists course attributes.", func() lookupFunc { return client.GetAttributes }),
		lookupCommand("sessions", "Lists sessions.", func() lookupFunc { return client.GetSessions }),
		lookupCommand("parts-of-term", "Lists parts of term.", func() lookupFunc { return client.GetPartsOfTerm }),
		lookupCommand("instructional-methods", "Lists instructional methods.", func() lookupFunc { return client.GetInstructionalMethods }),
	)
}

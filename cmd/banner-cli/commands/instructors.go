package commands

import (
	"bannerssb/lib/banner"

	"github.com/spf13/cobra"
)

var instructorName string

func init() {
	instructorsCmd.Flags().StringVar(&instructorName, "name", "", "Only show instructors whose names resemble this one.")
	rootCmd.AddCommand(instructorsCmd)
}

var instructorsCmd = withClient(&cobra.Command{
	Use:   "instructors <term> [--name <name>]",
	Short: "Lists every instructor teaching in a term.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			instructors []banner.Instructor
			err         error
		)
		if instructorName != "" {
			instructors, err = client.FindInstructors(cmd.Context(), args[0], instructorName)
		} else {
			instructors, err = client.GetInstructors(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return printCodeDescriptions(instructors)
	},
})

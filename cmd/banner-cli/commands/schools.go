package commands

import (
	"bannerssb/lib/banner"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schoolsCmd)
}

var schoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "Lists the schools that can be queried.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		if jsonOutput {
			schools := map[string]banner.School{}
			for _, key := range catalog.Keys() {
				schools[key], err = catalog.School(key)
				if err != nil {
					return err
				}
			}
			return printJSON(schools)
		}

		t := NewTable()
		t.AppendHeader(table.Row{"Key", "Name", "Portal", "Instructor batch"})
		for _, key := range catalog.Keys() {
			school, err := catalog.School(key)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{key, school.Name, school.BaseURL(), school.MaxInstructorCount})
		}
		t.Render()
		return nil
	},
}

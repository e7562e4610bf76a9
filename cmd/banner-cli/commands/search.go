package commands

import (
	"fmt"
	"strings"

	"bannerssb/lib/banner"
	"bannerssb/lib/htmlutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	openOnly   bool
	pageOffset int
	pageSize   int
)

func init() {
	classesCmd.Flags().BoolVar(&openOnly, "open", false, "Only show sections with open seats.")
	for _, cmd := range []*cobra.Command{classesCmd, catalogCmd} {
		cmd.Flags().IntVar(&pageOffset, "offset", 0, "The record offset to start from.")
		cmd.Flags().IntVar(&pageSize, "page-size", 0, "Records per page, defaults to the school's search page size.")
	}
	rootCmd.AddCommand(descriptionCmd, classesCmd, catalogCmd, coursesCmd)
}

func formatCredits(low, high *float64) string {
	switch {
	case low == nil && high == nil:
		return ""
	case low == nil:
		return fmt.Sprint(*high)
	case high == nil || *high == *low:
		return fmt.Sprint(*low)
	}
	return fmt.Sprintf("%v-%v", *low, *high)
}

func printSections(sections []banner.Section) error {
	if jsonOutput {
		return printJSON(sections)
	}
	t := NewTable()
	t.AppendHeader(table.Row{"CRN", "Course", "Title", "Instructors", "Credits", "Seats", "Waitlist", "Campus"})
	for _, s := range sections {
		instructors := make([]string, len(s.Faculty))
		for i, f := range s.Faculty {
			instructors[i] = f.DisplayName
		}
		t.AppendRow(table.Row{
			s.CourseReferenceNumber,
			fmt.Sprintf("%s %s-%s", s.Subject, s.CourseNumber, s.SequenceNumber),
			s.CourseTitle,
			strings.Join(instructors, "\n"),
			formatCredits(s.CreditHours, nil),
			fmt.Sprintf("%d/%d", s.SeatsAvailable, s.MaximumEnrollment),
			fmt.Sprintf("%d/%d", s.WaitCount, s.WaitCapacity),
			s.CampusDescription,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", len(sections)})
	t.Render()
	return nil
}

func printCourses(courses []banner.Course) error {
	if jsonOutput {
		return printJSON(courses)
	}
	t := NewTable()
	t.AppendHeader(table.Row{"Course", "Title", "Credits", "College", "Department"})
	for _, c := range courses {
		t.AppendRow(table.Row{
			fmt.Sprintf("%s %s", c.Subject, c.CourseNumber),
			c.CourseTitle,
			formatCredits(c.CreditHourLow, c.CreditHourHigh),
			c.College,
			c.Department,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", len(courses)})
	t.Render()
	return nil
}

var descriptionCmd = withClient(&cobra.Command{
	Use:   "description <term> <crn>",
	Short: "Prints the description of a section.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, err := client.GetCourseDescription(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(map[string]string{"description": description})
		}
		text, err := htmlutil.PlainText(description)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, text)
		return nil
	},
})

var classesCmd = withClient(&cobra.Command{
	Use:   "classes <term> <subject> [--open]",
	Short: "Searches the sections of a subject in a term.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.ClassSearch(cmd.Context(), banner.ClassSearchQuery{
			Term:     args[0],
			Subject:  args[1],
			OpenOnly: openOnly,
			Offset:   pageOffset,
			PageSize: pageSize,
		})
		if err != nil {
			return err
		}
		return printSections(res.Data)
	},
})

var catalogCmd = withClient(&cobra.Command{
	Use:   "catalog <term> <subject>",
	Short: "Searches the course catalog of a subject in a term.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.CatalogSearch(cmd.Context(), banner.CatalogSearchQuery{
			Term:     args[0],
			Subject:  args[1],
			Offset:   pageOffset,
			PageSize: pageSize,
		})
		if err != nil {
			return err
		}
		return printCourses(res.Data)
	},
})

var coursesCmd = withClient(&cobra.Command{
	Use:   "courses <term>",
	Short: "Lists the catalog courses of every subject in a term.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courses, err := client.GetAllCourses(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printCourses(courses)
	},
})

package command

import (
	"fmt"

	"lecturehub/cmd/cli/command/client"
	"lecturehub/cmd/cli/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Browse courses and bulk-complete weeks",
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the course catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		courses, err := c.ListCourses(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}
		for _, course := range courses {
			fmt.Printf("%-16s %-11s %-8s %s\n", course.ID, course.Level, course.Term, course.Title)
		}
		return nil
	},
}

var courseShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show the outline with your progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		courseID := args[0]
		c, _, err := authenticatedClient(ctx)
		if err != nil {
			return err
		}

		outline, err := c.Outline(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to load outline: %w", err)
		}
		summary, err := c.CourseProgress(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to load progress: %w", err)
		}
		weeks, err := c.WeekStatuses(ctx, courseID)
		if err != nil {
			return fmt.Errorf("failed to load week status: %w", err)
		}
		res, err := c.Resolve(ctx, courseID, "")
		if err != nil {
			return fmt.Errorf("failed to resolve resume point: %w", err)
		}

		s := summary.Data
		fmt.Printf("%s  %d/%d videos  %.1f%%", courseID, s.Completed, s.Total, s.Percent)
		if s.PriorLevel {
			fmt.Print("  (prior level, counted complete)")
		}
		fmt.Println()

		status := make(map[string]bool, len(weeks.Data))
		for _, w := range weeks.Data {
			status[w.WeekID] = w.Completed
		}
		for _, w := range outline.Weeks {
			mark := "○"
			if status[w.ID] {
				mark = color.GreenString("✓")
			}
			fmt.Printf("\n%s %s  %s\n", mark, w.ID, w.Title)
			for _, v := range w.Videos {
				cursor := "  "
				if v.ID == res.ActiveVideoID {
					cursor = color.CyanString("▶ ")
				}
				fmt.Printf("   %s%-24s %-40s %s\n", cursor, v.ID, v.Title, client.FormatClock(v.DurationSeconds))
			}
		}

		if res.ActiveVideoID != "" {
			fmt.Printf("\nResume: %s at %s\n", res.ActiveVideoID, client.FormatClock(res.ResumePosition))
		}
		return nil
	},
}

var courseCompleteCmd = &cobra.Command{
	Use:   "complete <course-id>",
	Short: "Toggle completion of a whole course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		res, err := c.ToggleCourse(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to toggle course: %w", err)
		}
		printBulk(args[0], res)
		return nil
	},
}

var courseWeekCmd = &cobra.Command{
	Use:   "week <course-id> <week-id>",
	Short: "Toggle completion of one week",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		res, err := c.ToggleWeek(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to toggle week: %w", err)
		}
		printBulk(args[1], res)
		return nil
	},
}

func printBulk(target string, res *dto.BulkResponse) {
	state := "not complete"
	if res.Completed {
		state = "complete"
	}
	if res.Failed == 0 {
		color.Green("✓ %s marked %s (%d videos)", target, state, res.Marked)
		return
	}
	color.Yellow("⚠ %s marked %s for %d videos, %d failed", target, state, res.Marked, res.Failed)
	for _, e := range res.Errors {
		fmt.Printf("   %s: %s\n", e.VideoID, e.Err)
	}
}

func init() {
	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseShowCmd)
	courseCmd.AddCommand(courseCompleteCmd)
	courseCmd.AddCommand(courseWeekCmd)
}

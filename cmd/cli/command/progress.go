package command

import (
	"fmt"
	"sort"

	"lecturehub/cmd/cli/command/client"
	"lecturehub/cmd/cli/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect and update video progress",
	Long:  `Show where you left off, what to continue and set or toggle completion of single videos.`,
}

var progressShowCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Show the stored progress of one video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		p, err := c.GetProgress(cmd.Context(), args[0])
		if client.IsNotFound(err) {
			fmt.Println("Not started yet.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get progress: %w", err)
		}
		printProgress(*p)
		return nil
	},
}

var progressRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recently watched videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		items, err := c.RecentProgress(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list recent progress: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("Nothing watched yet.")
			return nil
		}
		for _, p := range items {
			printProgress(p)
		}
		return nil
	},
}

var progressContinueCmd = &cobra.Command{
	Use:   "continue",
	Short: "List videos started but not finished",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		items, err := c.ContinueWatching(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list continue watching: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("Nothing to continue.")
			return nil
		}
		for _, it := range items {
			fmt.Printf("%s  %-40s %s  resume at %s\n", percent(it.Progress), it.VideoTitle, it.CourseTitle, client.FormatClock(it.LastPosition))
			fmt.Printf("        lecturehub watch %s --video %s\n", it.CourseID, it.VideoID)
		}
		return nil
	},
}

var progressCoursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Completion of every course you follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		view, err := c.AllCoursesProgress(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get course progress: %w", err)
		}
		if len(view.Data) == 0 {
			fmt.Println("No courses yet. Enrol or start watching to see them here.")
			return nil
		}
		ids := make([]string, 0, len(view.Data))
		for id := range view.Data {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("%-20s %5.1f%%\n", id, view.Data[id])
		}
		return nil
	},
}

var progressSetCmd = &cobra.Command{
	Use:   "set <video-id>",
	Short: "Record progress for a video",
	Long:  `Record a progress sample the way a player would. Progress never moves backwards.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		fraction, _ := cmd.Flags().GetFloat64("fraction")
		position, _ := cmd.Flags().GetFloat64("position")

		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		p, err := c.UpdateProgress(cmd.Context(), args[0], &dto.UpdateProgressRequest{
			CourseID:       courseID,
			Progress:       &fraction,
			WatchedSeconds: int(position),
			LastPosition:   position,
		})
		if err != nil {
			return fmt.Errorf("✗ Progress update failed: %w", err)
		}
		color.Green("✓ Progress updated")
		printProgress(*p)
		return nil
	},
}

var progressToggleCmd = &cobra.Command{
	Use:   "toggle <video-id>",
	Short: "Flip the completed flag of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		c, _, err := authenticatedClient(cmd.Context())
		if err != nil {
			return err
		}
		p, err := c.ToggleComplete(cmd.Context(), args[0], courseID)
		if err != nil {
			return fmt.Errorf("failed to toggle completion: %w", err)
		}
		if p.Completed {
			color.Green("✓ %s marked complete", p.VideoID)
		} else {
			color.Yellow("○ %s marked not complete", p.VideoID)
		}
		return nil
	},
}

func printProgress(p dto.ProgressResponse) {
	mark := "○"
	if p.Completed {
		mark = color.GreenString("✓")
	}
	fmt.Printf("%s %s  %-24s %s  at %s  (%s)\n",
		mark, percent(p.Progress), p.VideoID, p.CourseID,
		client.FormatClock(p.LastPosition), p.LastWatchedAt.Local().Format("2006-01-02 15:04"))
}

func init() {
	progressCmd.AddCommand(progressShowCmd)
	progressCmd.AddCommand(progressRecentCmd)
	progressCmd.AddCommand(progressContinueCmd)
	progressCmd.AddCommand(progressCoursesCmd)
	progressCmd.AddCommand(progressSetCmd)
	progressCmd.AddCommand(progressToggleCmd)

	progressRecentCmd.Flags().Int("limit", 10, "Number of entries")
	progressContinueCmd.Flags().Int("limit", 10, "Number of entries")

	progressSetCmd.Flags().String("course", "", "Course the video belongs to (required)")
	progressSetCmd.Flags().Float64("fraction", 0, "Watched fraction between 0 and 1 (required)")
	progressSetCmd.Flags().Float64("position", 0, "Resume position in seconds")
	_ = progressSetCmd.MarkFlagRequired("course")
	_ = progressSetCmd.MarkFlagRequired("fraction")

	progressToggleCmd.Flags().String("course", "", "Course the video belongs to (required)")
	_ = progressToggleCmd.MarkFlagRequired("course")
}

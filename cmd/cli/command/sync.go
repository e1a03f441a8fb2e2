package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecturehub/cmd/cli/command/client"
	"lecturehub/internal/shared"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Real-time progress sync",
	Long:  `Follow progress changes from other devices and push samples through the TCP sync server.`,
}

var syncMonitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Follow progress changes live",
	Long:  `Subscribes to the websocket feed and prints every change to your progress. Press Ctrl+C to exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		creds, err := session(ctx)
		if err != nil {
			return err
		}

		fmt.Println("Monitoring progress updates... (Press Ctrl+C to exit)")
		return client.WatchProgress(ctx, apiURL, creds.AccessToken, client.PrintEvent)
	},
}

var syncTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print sync server broadcasts for your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c, err := connectSync(ctx)
		if err != nil {
			return err
		}
		defer c.Disconnect()

		fmt.Printf("Connected to %s as %s (Press Ctrl+C to exit)\n", tcpServer, c.UserID())
		for {
			select {
			case <-ctx.Done():
				return nil
			case f, ok := <-c.Frames():
				if !ok {
					return fmt.Errorf("connection closed by server")
				}
				printFrame(f)
			}
		}
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push <video-id>",
	Short: "Send one progress sample through the sync server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		fraction, _ := cmd.Flags().GetFloat64("fraction")
		position, _ := cmd.Flags().GetFloat64("position")

		c, err := connectSync(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Disconnect()

		if cmd.Flags().Changed("fraction") {
			err = c.SendProgress(shared.ProgressUpdate{
				VideoID:         args[0],
				CourseID:        courseID,
				WatchedFraction: fraction,
				WatchedSeconds:  int(position),
				LastPosition:    position,
			})
		} else {
			err = c.SendPosition(args[0], courseID, position)
		}
		if err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}
		return awaitFrame(cmd.Context(), c, "progress_ack")
	},
}

var syncGetCmd = &cobra.Command{
	Use:   "get <video-id>",
	Short: "Read progress from the sync server's hot store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connectSync(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Disconnect()

		if err := c.RequestProgress(args[0]); err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}
		return awaitFrame(cmd.Context(), c, "progress")
	},
}

func connectSync(ctx context.Context) (*client.TCPClient, error) {
	creds, err := session(ctx)
	if err != nil {
		return nil, err
	}
	c := client.NewTCPClient(tcpServer)
	if err := c.Connect(ctx, creds.AccessToken); err != nil {
		return nil, err
	}
	return c, nil
}

// awaitFrame prints frames until one of the wanted type or an error arrives.
func awaitFrame(ctx context.Context, c *client.TCPClient, want string) error {
	timeout := time.NewTimer(10 * time.Second)
	defer timeout.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("no %s reply from sync server", want)
		case f, ok := <-c.Frames():
			if !ok {
				return fmt.Errorf("connection closed by server")
			}
			if f.Type == "error" {
				return fmt.Errorf("sync server: %s", f.Message)
			}
			if f.Type == want {
				printFrame(f)
				return nil
			}
		}
	}
}

func printFrame(f client.Frame) {
	ts := time.Unix(f.Timestamp, 0).Format("15:04:05")
	switch f.Type {
	case "system":
		color.Yellow("[%s] %s", ts, f.Message)
	case "error":
		color.Red("[%s] ✗ %s", ts, f.Message)
	case "progress", "progress_ack", "progress_broadcast":
		p, err := f.Progress()
		if err != nil {
			color.Red("[%s] ✗ bad payload: %v", ts, err)
			return
		}
		if p == nil {
			fmt.Printf("[%s] no progress stored\n", ts)
			return
		}
		arrow := "→"
		if f.Type == "progress_broadcast" {
			arrow = "←"
		}
		fmt.Printf("[%s] %s %s/%s %s at %s\n", ts, arrow, p.CourseID, p.VideoID, percent(p.WatchedFraction), client.FormatClock(p.LastPosition))
	}
}

func init() {
	syncCmd.AddCommand(syncMonitorCmd)
	syncCmd.AddCommand(syncTailCmd)
	syncCmd.AddCommand(syncPushCmd)
	syncCmd.AddCommand(syncGetCmd)

	syncPushCmd.Flags().String("course", "", "Course the video belongs to (required)")
	syncPushCmd.Flags().Float64("fraction", 0, "Watched fraction; omit to send the position only")
	syncPushCmd.Flags().Float64("position", 0, "Resume position in seconds")
	_ = syncPushCmd.MarkFlagRequired("course")
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"alarmd/internal/protocol"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "alarmc",
	Short: "Client for the alarm daemon",
	Long:  "alarmc manages the alarms kept by alarmd.\nWithout a subcommand it lists the scheduled alarms.",
	RunE: func(cmd *cobra.Command, args []string) error {
		socket, _ := cmd.Flags().GetString("socket")
		full, _ := cmd.Flags().GetBool("full")
		cancelled, _ := cmd.Flags().GetBool("cancelled")
		whens, _ := cmd.Flags().GetBool("whens")
		raw, _ := cmd.Flags().GetBool("raw")

		out, err := fetchAlarms(socket, listOptions{
			full:          full,
			showCancelled: cancelled,
			listWhens:     whens,
			raw:           raw,
		})
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// sendTimes sends one request per time argument and prints each reply.
// Relative times ("+10", "+1:30") are resolved here before transmission;
// the daemon only sees absolute times.
func sendTimes(cmd *cobra.Command, action string, times []string, allowRelative bool) error {
	socket, _ := cmd.Flags().GetString("socket")
	when, _ := cmd.Flags().GetString("when")

	for _, timeStr := range times {
		if allowRelative {
			resolved, err := protocol.ResolveRelativeTime(timeStr, time.Now())
			if err != nil {
				return err
			}
			timeStr = resolved
		}

		reply, err := sendMessage(socket, protocol.Message{
			Time:   timeStr,
			When:   when,
			Action: action,
		})
		if err != nil {
			return err
		}
		fmt.Println(reply)
	}
	return nil
}

var addCmd = &cobra.Command{
	Use:   "add TIME...",
	Short: "Add new alarms",
	Long:  "Add alarms at the given HH:MM times. A time starting with '+' is relative:\n'+10' means ten minutes from now, '+1:30' an hour and a half.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTimes(cmd, "add", args, true)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete TIME...",
	Short: "Delete alarms from the schedule",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTimes(cmd, "delete", args, false)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel TIME...",
	Short: "Cancel alarms for today only",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTimes(cmd, "cancel", args, false)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the currently playing alarm",
	RunE: func(cmd *cobra.Command, args []string) error {
		socket, _ := cmd.Flags().GetString("socket")
		reply, err := sendMessage(socket, protocol.Message{Action: "stop", When: "auto"})
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("socket", "s", defaultSocketPath(), "Socket path to communicate with the daemon")

	rootCmd.Flags().BoolP("full", "f", false, "Include alarms not scheduled for today")
	rootCmd.Flags().BoolP("cancelled", "c", false, "Show cancelled alarms for today")
	rootCmd.Flags().BoolP("whens", "w", false, "Show the 'when' column")
	rootCmd.Flags().BoolP("raw", "r", false, "Tab-separated output instead of a table")

	for _, cmd := range []*cobra.Command{addCmd, deleteCmd, cancelCmd} {
		cmd.Flags().StringP("when", "W", "auto", "Recurrence kind: auto, everyday, weekdays or weekends")
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(stopCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dispatchSecret string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Fire one dispatch cycle (what the periodic trigger does)",
	Run: func(cmd *cobra.Command, args []string) {
		client := NewSchedulerClient(viper.GetString("url"), "")
		summary, err := client.Dispatch(dispatchSecret)
		if err != nil {
			cmd.Printf("Dispatch failed: %v\n", err)
			return
		}

		cmd.Printf("Dispatch cycle finished.\nAttempted: %d\nSucceeded: %d\nFailed: %d\nSkipped: %d\nReleased: %d\n",
			summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped, summary.Released)
		for _, e := range summary.Errors {
			cmd.Printf("  job %s (%s): %s (retries: %d)\n", e.JobID, e.Type, e.Message, e.RetryCount)
		}
	},
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchSecret, "secret", "", "Dispatch shared secret")

	rootCmd.AddCommand(dispatchCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [job_id]",
	Short: "Cancel a job so no further dispatch considers it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		token := viper.GetString("token")
		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the CRONPLANE_TOKEN environment variable")
			return
		}

		client := NewSchedulerClient(viper.GetString("url"), token)
		resp, err := client.CancelJob(args[0])
		if err != nil {
			cmd.Printf("Failed to cancel job: %v\n", err)
			return
		}

		cmd.Printf("Job %s is now %s\n", resp.JobID, resp.Status)
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger [job_id]",
	Short: "Force-run a job immediately, bypassing its schedule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		token := viper.GetString("token")
		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the CRONPLANE_TOKEN environment variable")
			return
		}

		client := NewSchedulerClient(viper.GetString("url"), token)
		resp, err := client.TriggerJob(args[0])
		if err != nil {
			cmd.Printf("Failed to trigger job: %v\n", err)
			return
		}

		if resp.Error != "" {
			cmd.Printf("Job ran and failed.\nStatus: %s\nRetries: %d\nError: %s\n", resp.Status, resp.RetryCount, resp.Error)
			return
		}

		cmd.Printf("Job ran successfully!\nStatus: %s\n", resp.Status)
		if resp.NextRunAt != nil {
			cmd.Printf("Next run: %s\n", resp.NextRunAt)
		}
	},
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

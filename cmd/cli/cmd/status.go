package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Show a job record and its last run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		token := viper.GetString("token")
		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the CRONPLANE_TOKEN environment variable")
			return
		}

		client := NewSchedulerClient(viper.GetString("url"), token)
		job, err := client.GetJob(args[0])
		if err != nil {
			cmd.Printf("Failed to get job: %v\n", err)
			return
		}

		cmd.Printf("ID:       %s\n", job.ID)
		cmd.Printf("Type:     %s\n", job.Type)
		cmd.Printf("Status:   %s\n", job.Status)
		if job.RecurrenceRule != "" {
			cmd.Printf("Rule:     %s\n", job.RecurrenceRule)
		}
		if job.NextRunAt != nil {
			cmd.Printf("Next run: %s\n", job.NextRunAt)
		}
		if job.LastRunAt != nil {
			cmd.Printf("Last run: %s\n", job.LastRunAt)
		}
		if job.LastResultOK != nil {
			if *job.LastResultOK {
				cmd.Println("Last result: ok")
			} else {
				cmd.Printf("Last result: failed (%s)\n", job.LastResult)
			}
		}
		cmd.Printf("Retries:  %d/%d\n", job.RetryCount, job.MaxRetries)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"encoding/json"
	"time"

	"cronplane/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	createOrgID      string
	createType       string
	createPayload    string
	createRule       string
	createRunAt      string
	createMaxRetries int
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job record",
	Run: func(cmd *cobra.Command, args []string) {
		token := viper.GetString("token")
		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the CRONPLANE_TOKEN environment variable")
			return
		}

		if createOrgID == "" || createType == "" {
			cmd.Println("Both --org and --type are required")
			return
		}

		req := api.CreateJobRequest{
			OrgID:          createOrgID,
			Type:           createType,
			RecurrenceRule: createRule,
			MaxRetries:     createMaxRetries,
		}

		if createPayload != "" {
			if !json.Valid([]byte(createPayload)) {
				cmd.Println("Payload must be valid JSON")
				return
			}
			req.Payload = json.RawMessage(createPayload)
		}

		if createRunAt != "" {
			t, err := time.Parse(time.RFC3339, createRunAt)
			if err != nil {
				cmd.Printf("Invalid --run-at (want RFC3339): %v\n", err)
				return
			}
			req.RunAt = &t
		}

		client := NewSchedulerClient(viper.GetString("url"), token)
		resp, err := client.CreateJob(req)
		if err != nil {
			cmd.Printf("Failed to create job: %v\n", err)
			return
		}

		cmd.Printf("Job created!\nID: %s\n", resp.JobID)
	},
}

func init() {
	createCmd.Flags().StringVar(&createOrgID, "org", "", "Organisation ID the job belongs to")
	createCmd.Flags().StringVar(&createType, "type", "", "Job type (must match a registered handler)")
	createCmd.Flags().StringVar(&createPayload, "payload", "", "JSON payload passed to the handler")
	createCmd.Flags().StringVar(&createRule, "rule", "", `Recurrence rule ("5m", "@every 1h", or cron expression); empty = one-shot`)
	createCmd.Flags().StringVar(&createRunAt, "run-at", "", "First due time, RFC3339 (default: now)")
	createCmd.Flags().IntVar(&createMaxRetries, "max-retries", 0, "Retry budget for failed runs")

	rootCmd.AddCommand(createCmd)
}

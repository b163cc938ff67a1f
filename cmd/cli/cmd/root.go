package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cronctl",
	Short: "Cronctl is a command line tool for interacting with the cronplane scheduler",
	Long: `cronctl is the command-line interface for the cronplane scheduled-job engine.

cronplane periodically discovers due jobs, claims each one atomically, runs its
handler, and computes the next due time for recurring work.

Common workflows:

  Create a recurring job:
    cronctl create --org <org-id> --type "report" --rule "@every 1h" --payload '{"week":34}'

  Force-run a job immediately (bypasses its schedule):
    cronctl trigger <job-id>

  Fire a dispatch cycle by hand:
    cronctl dispatch --secret <dispatch-secret>

  Inspect a job:
    cronctl status <job-id>

  Cancel a job:
    cronctl cancel <job-id>

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    CRONPLANE_URL      API endpoint (default: http://localhost:7070)
    CRONPLANE_TOKEN    Operator API key for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".cronctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".cronctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "CRONPLANE_VARNAME"
	viper.SetEnvPrefix("CRONPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cronctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:7070", "Cronplane scheduler URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "Operator API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

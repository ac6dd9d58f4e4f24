package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "taskarena",
	Short: "Taskarena is a command line tool for queueing coding jobs against local repositories",
	Long: `taskarena is the command-line interface for the TaskArena daemon.

TaskArena turns natural-language change requests into unattended coding jobs.
Each job targets a local repository directory and is executed by an external
code-generation CLI in two phases: a read-only planning phase, then an apply
phase that runs only when the plan succeeded.

Common workflows:

  Submit a change request against the current directory:
    taskarena submit --prompt "Add input validation to the signup form"

  Submit against another repository:
    taskarena submit --dir ~/src/billing --prompt "Migrate the config loader to YAML"

  Queue several requests at once (one per stdin line):
    cat requests.txt | taskarena submit --dir ~/src/billing

  Check a job:
    taskarena status <job-id>

  Read captured step output:
    taskarena logs <job-id>
    taskarena logs <job-id> plan.stdout.txt

  Follow a job live:
    taskarena watch <job-id>

Configuration:
  Set the daemon endpoint via environment variables or a config file:
    TASKARENA_URL    Daemon endpoint (default: http://127.0.0.1:8787)`,
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

		// Search config in home directory with name ".taskarena"
		viper.AddConfigPath(home)
		viper.SetConfigName(".taskarena")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "TASKARENA_VARNAME"
	viper.SetEnvPrefix("TASKARENA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.taskarena.yaml)")

	rootCmd.PersistentFlags().String("url", "http://127.0.0.1:8787", "TaskArena daemon URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
}

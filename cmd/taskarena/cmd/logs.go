package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logsCmd = &cobra.Command{
	Use:   "logs [job_id] [artifact]",
	Short: "Show run history or captured step output",
	Long: `Show recent job outcomes, list the artifacts captured for one job,
or print a single artifact.

Without arguments the command tails the run log. With a job ID it lists what
was captured for that job. With an artifact name it prints the raw content,
so output can be piped into other tools.

Example:
  taskarena logs                    # recent outcomes
  taskarena logs --limit 50
  taskarena logs 4f1c...            # list artifacts
  taskarena logs 4f1c... plan.stdout.txt
  taskarena logs 4f1c... error.txt`,
	Args: cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		client := NewJobClient(url)

		if len(args) == 0 {
			limit, _ := cmd.Flags().GetInt("limit")
			printRunHistory(cmd, client, limit)
			return
		}

		jobID := args[0]

		if len(args) == 2 {
			content, err := client.GetArtifact(jobID, args[1])
			if err != nil {
				printLogsError(cmd, err)
				return
			}
			cmd.Print(content)
			return
		}

		list, err := client.ListArtifacts(jobID)
		if err != nil {
			printLogsError(cmd, err)
			return
		}

		if len(list.Artifacts) == 0 {
			cmd.Println("No artifacts captured yet.")
			return
		}

		cmd.Printf("%sArtifacts for %s%s\n", colorBold, jobID, colorReset)
		for _, a := range list.Artifacts {
			cmd.Printf("  %-18s %6d bytes  %s%s%s\n", a.Name, a.Size, colorDim, shortHash(a.Hash), colorReset)
		}
	},
}

// shortHash truncates a content hash for display. The daemon sends full
// SHA-256 hex, but a skewed or older daemon may send less.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func printRunHistory(cmd *cobra.Command, client *JobClient, limit int) {
	history, err := client.ListRuns(limit)
	if err != nil {
		printLogsError(cmd, err)
		return
	}

	if len(history.Runs) == 0 {
		cmd.Println("No completed jobs yet.")
		return
	}

	for _, run := range history.Runs {
		outcome := colorGreen + "ok    " + colorReset
		if !run.OK {
			outcome = colorRed + "failed" + colorReset
		}
		cmd.Printf("%s  %s  %s%s%s", outcome, run.ID, colorDim, run.RepoKey, colorReset)
		if run.Error != "" {
			cmd.Printf("  %s%s%s", colorRed, run.Error, colorReset)
		}
		cmd.Println()
	}
}

func printLogsError(cmd *cobra.Command, err error) {
	if apiErr, ok := err.(*APIError); ok {
		cmd.Printf("Logs failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		return
	}
	cmd.Printf("Logs failed: %v\n", err)
}

func init() {
	logsCmd.Flags().Int("limit", 20, "Number of run records to show")
	rootCmd.AddCommand(logsCmd)
}

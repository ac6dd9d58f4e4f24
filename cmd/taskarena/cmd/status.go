package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevangML/TaskArena/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [job_id]",
	Short: "Get status of a job",
	Long:  `Retrieve the lifecycle stage of a job (inbox, running, done, failed) and, once it has finished, the recorded outcome.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]
		url := viper.GetString("url")

		client := NewJobClient(url)
		job, err := client.GetJob(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Status failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Status failed: %v\n", err)
			}
			return
		}

		printStatus(cmd, job)
	},
}

func printStatus(cmd *cobra.Command, job *api.JobStatusResponse) {
	icon := stageIcon(job.Stage)
	cmd.Printf("%s %sJob Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s        %s\n", colorDim, colorReset, job.ID)
	cmd.Printf("%sStage:%s     %s\n", colorDim, colorReset, colorizeStage(job.Stage))

	if job.Result == nil {
		return
	}

	cmd.Printf("%sRepo Key:%s  %s\n", colorDim, colorReset, job.Result.RepoKey)
	cmd.Printf("%sDir:%s       %s\n", colorDim, colorReset, job.Result.Dir)

	if job.Result.OK {
		cmd.Printf("%sOutcome:%s   %sok%s\n", colorDim, colorReset, colorGreen, colorReset)
	} else {
		cmd.Printf("%sOutcome:%s   %sfailed%s\n", colorDim, colorReset, colorRed, colorReset)
	}
	if job.Result.Error != "" {
		cmd.Printf("%sError:%s     %s%s%s\n", colorDim, colorReset, colorRed, job.Result.Error, colorReset)
	}
	cmd.Printf("%sFinished:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(job.Result.TS))
}

// ANSI helpers shared by the human-readable commands.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func stageIcon(stage string) string {
	switch stage {
	case api.StageDone:
		return colorGreen + "✓" + colorReset
	case api.StageFailed:
		return colorRed + "✗" + colorReset
	case api.StageRunning:
		return colorYellow + "⏳" + colorReset
	case api.StageInbox:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStage(stage string) string {
	icon := stageIcon(stage)
	switch stage {
	case api.StageDone:
		return icon + " " + colorGreen + stage + colorReset
	case api.StageFailed:
		return icon + " " + colorRed + stage + colorReset
	case api.StageRunning:
		return icon + " " + colorYellow + stage + colorReset
	case api.StageInbox:
		return icon + " " + colorCyan + stage + colorReset
	default:
		return stage
	}
}

func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relativeTime(t), colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

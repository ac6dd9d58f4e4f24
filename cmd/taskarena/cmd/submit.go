package cmd

import (
	"bufio"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevangML/TaskArena/pkg/api"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a change request against a repository",
	Long: `Queue one or more change requests against a local repository directory.

With --prompt, a single job is submitted. Without it, prompts are read from
stdin, one job per non-empty line, so a batch of requests can be piped in.

Example:
  taskarena submit --prompt "Add retries to the HTTP client"
  taskarena submit --dir ~/src/billing --prompt "Split the invoice model"
  cat requests.txt | taskarena submit --dir ~/src/billing`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		dir, _ := flags.GetString("dir")
		prompt, _ := flags.GetString("prompt")

		url := viper.GetString("url")

		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				cmd.Printf("Failed to determine working directory: %v\n", err)
				return
			}
			dir = wd
		}

		var prompts []string
		if strings.TrimSpace(prompt) != "" {
			prompts = []string{prompt}
		} else {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				if line := strings.TrimSpace(scanner.Text()); line != "" {
					prompts = append(prompts, line)
				}
			}
			if err := scanner.Err(); err != nil {
				cmd.Printf("Failed to read prompts from stdin: %v\n", err)
				return
			}
		}

		if len(prompts) == 0 {
			cmd.Println("Error: --prompt is required, or pipe prompts on stdin")
			return
		}

		client := NewJobClient(url)

		for _, p := range prompts {
			result, err := client.SubmitJob(api.SubmitJobRequest{Dir: dir, Prompt: p})
			if err != nil {
				if apiErr, ok := err.(*APIError); ok {
					cmd.Printf("Submit failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
				} else {
					cmd.Printf("Submit failed: %v\n", err)
				}
				return
			}
			cmd.Printf("✓ Job queued!\nJob ID: %s\nRepo Key: %s\n", result.ID, result.RepoKey)
		}
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("dir", "d", "", "Target repository directory (default: current directory)")
	flags.StringP("prompt", "p", "", "Change request text (omit to read prompts from stdin)")

	rootCmd.AddCommand(submitCmd)
}

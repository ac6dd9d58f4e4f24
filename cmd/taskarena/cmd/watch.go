package cmd

import (
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DevangML/TaskArena/pkg/api"
)

var watchCmd = &cobra.Command{
	Use:   "watch [job_id]",
	Short: "Follow a job live until it finishes",
	Long: `Follow a job in a live terminal view. The view polls the daemon,
shows the current stage, and surfaces artifacts as they appear. It exits on
its own once the job reaches done or failed, or on q / ctrl+c.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		client := NewJobClient(viper.GetString("url"))

		model := newWatchModel(client, args[0], interval)
		_, err := tea.NewProgram(model, tea.WithOutput(cmd.OutOrStdout())).Run()
		return err
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 2*time.Second, "Poll interval")
	rootCmd.AddCommand(watchCmd)
}

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	watchDimStyle   = lipgloss.NewStyle().Faint(true)
	watchOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	watchFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	watchRunStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	watchBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type watchTickMsg struct{}

// watchPollMsg carries one poll's results. Either field may be nil when the
// corresponding request failed.
type watchPollMsg struct {
	job       *api.JobStatusResponse
	artifacts *api.ListArtifactsResponse
	err       error
}

type watchModel struct {
	client   *JobClient
	jobID    string
	interval time.Duration

	stage     string
	result    *api.RunLogResponse
	artifacts []api.ArtifactInfo
	// seen maps artifact name to the last content hash, so the event log
	// only records genuinely new or changed output.
	seen   map[string]string
	events []string
	err    error
	final  bool
}

func newWatchModel(client *JobClient, jobID string, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return watchModel{
		client:   client,
		jobID:    jobID,
		interval: interval,
		stage:    api.StageUnknown,
		seen:     make(map[string]string),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.poll()
}

func (m watchModel) poll() tea.Cmd {
	client, jobID := m.client, m.jobID
	return func() tea.Msg {
		job, err := client.GetJob(jobID)
		if err != nil {
			return watchPollMsg{err: err}
		}
		artifacts, err := client.ListArtifacts(jobID)
		if err != nil {
			return watchPollMsg{job: job, err: err}
		}
		return watchPollMsg{job: job, artifacts: artifacts}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case watchTickMsg:
		if m.final {
			return m, tea.Quit
		}
		return m, m.poll()

	case watchPollMsg:
		m.err = msg.err
		if msg.job != nil {
			if msg.job.Stage != m.stage {
				m.events = append(m.events, fmt.Sprintf("stage → %s", msg.job.Stage))
			}
			m.stage = msg.job.Stage
			m.result = msg.job.Result
		}
		if msg.artifacts != nil {
			m.artifacts = msg.artifacts.Artifacts
			for _, a := range msg.artifacts.Artifacts {
				if m.seen[a.Name] != a.Hash {
					if m.seen[a.Name] == "" {
						m.events = append(m.events, fmt.Sprintf("artifact %s (%d bytes)", a.Name, a.Size))
					} else {
						m.events = append(m.events, fmt.Sprintf("artifact %s updated (%d bytes)", a.Name, a.Size))
					}
					m.seen[a.Name] = a.Hash
				}
			}
		}
		if m.stage == api.StageDone || m.stage == api.StageFailed {
			// One more tick so the final state is rendered before quitting.
			m.final = true
		}
		return m, m.tick()
	}

	return m, nil
}

func (m watchModel) View() string {
	title := watchTitleStyle.Render("TaskArena · " + m.jobID)

	var stage string
	switch m.stage {
	case api.StageDone:
		stage = watchOKStyle.Render("✓ " + m.stage)
	case api.StageFailed:
		stage = watchFailStyle.Render("✗ " + m.stage)
	case api.StageRunning:
		stage = watchRunStyle.Render("⏳ " + m.stage)
	default:
		stage = watchDimStyle.Render(m.stage)
	}

	body := "Stage: " + stage + "\n"

	if len(m.artifacts) > 0 {
		names := make([]string, 0, len(m.artifacts))
		for _, a := range m.artifacts {
			names = append(names, fmt.Sprintf("%s (%d bytes)", a.Name, a.Size))
		}
		sort.Strings(names)
		body += "Artifacts:\n"
		for _, n := range names {
			body += "  " + n + "\n"
		}
	}

	if m.result != nil {
		if m.result.OK {
			body += "Outcome: " + watchOKStyle.Render("ok") + "\n"
		} else {
			body += "Outcome: " + watchFailStyle.Render("failed") + "\n"
			if m.result.Error != "" {
				body += "Error: " + watchFailStyle.Render(m.result.Error) + "\n"
			}
		}
	}

	if len(m.events) > 0 {
		body += watchDimStyle.Render("Recent:") + "\n"
		start := 0
		if len(m.events) > 5 {
			start = len(m.events) - 5
		}
		for _, e := range m.events[start:] {
			body += watchDimStyle.Render("  "+e) + "\n"
		}
	}

	if m.err != nil {
		body += watchFailStyle.Render("Poll error: "+m.err.Error()) + "\n"
	}

	footer := watchDimStyle.Render("q to quit")

	return title + "\n" + watchBoxStyle.Render(body) + "\n" + footer + "\n"
}

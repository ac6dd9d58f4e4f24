package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears viper config between tests for isolation
func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("TASKARENA")
	viper.AutomaticEnv()
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("TASKARENA_URL", "http://custom-url:9999")

	if url := viper.GetString("url"); url != "http://custom-url:9999" {
		t.Errorf("expected url from env var, got: %s", url)
	}
}

func TestRootCommand_ExecuteReturnsNoError(t *testing.T) {
	resetViper()

	rootCmd.SetArgs([]string{"--help"})

	if err := rootCmd.Execute(); err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	want := map[string]bool{
		"submit":                   false,
		"status [job_id]":          false,
		"logs [job_id] [artifact]": false,
		"watch [job_id]":           false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Use]; ok {
			want[cmd.Use] = true
		}
	}
	for use, found := range want {
		if !found {
			t.Errorf("expected subcommand %q to be registered", use)
		}
	}
}

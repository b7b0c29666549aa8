// File path: cmd/recollect/main.go

// Command recollect ingests coding-agent session transcripts into a local
// searchable catalog and serves a read-only dashboard over it.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/recollect-dev/recollect/internal/catalog"
	"github.com/recollect-dev/recollect/internal/common"
	"github.com/recollect-dev/recollect/internal/config"
	"github.com/recollect-dev/recollect/internal/daemon"
)

var jsonOutput bool

func main() {
	if err := godotenv.Load(); err != nil {
		common.Logger().Debug("no .env file loaded", "error", err)
	}
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recollect",
		Short:         "Catalog and search your coding-agent sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	root.AddCommand(
		newConnectCmd(),
		newSyncCmd(),
		newMaintainCmd(),
		newDaemonCmd(),
		newDashboardCmd(),
		newStatusCmd(),
	)
	return root
}

// exitCodeError carries a process exit code up through cobra.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

func loadRuntime() (config.Config, *catalog.Store, *daemon.Runner, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	store, err := catalog.Open(cfg.SessionsDB)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	return cfg, store, daemon.NewRunner(cfg, store), nil
}

func emit(payload any, text func()) {
	if jsonOutput {
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Println(string(encoded))
		return
	}
	text()
}

// finishRun converts a daemon exit code plus summary into command output
// and the right process exit status.
func finishRun(code int, summary map[string]any) error {
	emit(summary, func() {
		if errMsg, ok := summary["error"].(string); ok {
			fmt.Fprintln(os.Stderr, "error:", errMsg)
		}
		for _, key := range []string{"discovered", "indexed", "updated", "skipped", "extracted_sessions", "extract_failures"} {
			if value, ok := summary[key]; ok {
				fmt.Printf("%s: %v\n", key, value)
			}
		}
		if partial, ok := summary["partial"]; ok {
			fmt.Printf("partial: %v\n", partial)
		}
	})
	if code != daemon.ExitOK {
		return &exitCodeError{code: code, msg: fmt.Sprintf("exit status %d", code)}
	}
	return nil
}

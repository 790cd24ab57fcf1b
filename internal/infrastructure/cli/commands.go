package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appconfig "github.com/doeshing/rag-go/internal/application/config"
	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/version"
)

const (
	msgConfigurationValid = "Configuration valid"
	msgHistoryDisabled    = "History is disabled. Set history.enabled: true (or RAG_HISTORY_ENABLED=true) to record invocations."
	msgNoHistoryRecorded  = "No history recorded yet."
	outputPreviewLength   = 60
)

var errDoctorFailed = errors.New("one or more checks failed")

func newConfigCommand(s *session) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect rag configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, s)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (defaults, file and environment merged)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, s)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.load(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.load(cmd)
			if err != nil {
				return err
			}
			if err := appconfig.Validate(container.Config); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msgConfigurationValid)
			return nil
		},
	}

	configCmd.AddCommand(showCmd, pathCmd, validateCmd)
	return configCmd
}

func showConfiguration(cmd *cobra.Command, s *session) error {
	container, err := s.load(cmd)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(container.Config); err != nil {
		return err
	}
	return enc.Close()
}

func newDoctorCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and endpoint reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.load(cmd)
			if err != nil {
				return err
			}
			report, err := container.DoctorService.Run(cmd.Context())
			renderDoctorReport(cmd.OutOrStdout(), report)
			if err != nil {
				return fmt.Errorf("diagnostics completed with errors: %w", err)
			}
			if report.Failed() {
				return errDoctorFailed
			}
			return nil
		},
	}
}

func newHistoryCommand(s *session) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded invocations",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent invocations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if container.HistoryStore == nil {
				fmt.Fprintln(out, msgHistoryDisabled)
				return nil
			}
			records, err := container.HistoryStore.Records(limit)
			if err != nil {
				return fmt.Errorf("failed to retrieve history records: %w", err)
			}
			renderHistory(out, records)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show (0 for all)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := s.load(cmd)
			if err != nil {
				return err
			}
			if container.HistoryStore == nil {
				fmt.Fprintln(cmd.OutOrStdout(), msgHistoryDisabled)
				return nil
			}
			if err := container.HistoryStore.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, clearCmd)
	return historyCmd
}

func renderHistory(out io.Writer, records []domain.HistoryRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, msgNoHistoryRecorded)
		return
	}
	for _, rec := range records {
		outcome := "ok"
		if !rec.Succeeded() {
			outcome = string(rec.ErrorKind)
		}
		fmt.Fprintf(out, "%s | %s | %s | %s | %s\n",
			rec.Timestamp.Local().Format(domain.TimestampFormat),
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
			outcome,
			rec.Query,
			preview(rec.Output))
	}
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= outputPreviewLength {
		return text
	}
	return string(runes[:outputPreviewLength]) + "..."
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show rag version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rag version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.BuildDate != "" {
				fmt.Fprintf(out, "Built: %s\n", version.BuildDate)
			}
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			return nil
		},
	}
}

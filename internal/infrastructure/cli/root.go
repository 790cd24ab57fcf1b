package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/doeshing/rag-go/internal/app"
	appconfig "github.com/doeshing/rag-go/internal/application/config"
	"github.com/doeshing/rag-go/internal/domain"
)

// Options holds CLI-level configuration.
type Options struct {
	// Fs and HTTPClient are handed to the container; nil selects the real ones.
	Fs         afero.Fs
	HTTPClient *http.Client
}

// session lazily builds the container once the persistent flags are parsed.
type session struct {
	opts       Options
	configPath string
	logLevel   string
	metricsOut string
	container  *app.Container
}

func (s *session) load(cmd *cobra.Command) (*app.Container, error) {
	if s.container != nil {
		return s.container, nil
	}
	container, err := app.BuildContainer(cmd.Context(), app.Options{
		ConfigPath: s.configPath,
		LogLevel:   s.logLevel,
		LogOutput:  cmd.ErrOrStderr(),
		Fs:         s.opts.Fs,
		HTTPClient: s.opts.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	s.container = container
	return container, nil
}

// NewRootCmd wires the cobra root command. `rag <words...>` runs the query operation.
func NewRootCmd(opts Options) *cobra.Command {
	s := &session{opts: opts}
	var flags queryFlags

	root := &cobra.Command{
		Use:   "rag [query...]",
		Short: "RAG - retrieval-augmented query against a local inference service",
		Long: "rag sends a question to a local OpenAI-compatible chat-completion endpoint,\n" +
			"optionally grounding it with context from a retrieval endpoint, and prints the\n" +
			"streamed answer.\n\n" +
			"A query whose first word names a subcommand (history, config, ...) must be\n" +
			"passed after \"--\" or through exec: rag -- history of rome, rag exec rag history of rome.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runQuery(cmd, flags, domain.CommandName, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&s.configPath, "config", "", "Config file (default ~/.rag/config.yaml or $RAG_CONFIG)")
	root.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Override logging.level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&s.metricsOut, "metrics-file", "", "Write Prometheus metrics in textfile format after the run")
	flags.bind(root)

	root.AddCommand(newExecCommand(s))
	root.AddCommand(newConfigCommand(s))
	root.AddCommand(newDoctorCommand(s))
	root.AddCommand(newHistoryCommand(s))
	root.AddCommand(newVersionCommand())
	return root
}

func newExecCommand(s *session) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Invoke a named operation the way an editor host would",
		Long:  "exec passes the operation name through unchanged; only \"rag\" is accepted.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runQuery(cmd, flags, args[0], args[1:])
		},
	}
	flags.bind(cmd)
	return cmd
}

type queryFlags struct {
	stream     bool
	sections   bool
	mode       string
	retrieve   bool
	noRetrieve bool
	timeout    time.Duration
	json       bool
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.stream, "stream", "s", false, "Print fragments as they arrive")
	cmd.Flags().BoolVar(&f.sections, "sections", false, "Shorthand for --mode sections")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Output mode: concat|sections (default from config)")
	cmd.Flags().BoolVar(&f.retrieve, "retrieve", false, "Fetch context from the retrieval endpoint first")
	cmd.Flags().BoolVar(&f.noRetrieve, "no-retrieve", false, "Skip retrieval even if enabled in config")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Bound the whole invocation (default from config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print the result as JSON")
}

func (f queryFlags) outputMode() (domain.OutputMode, error) {
	mode := domain.OutputMode(strings.ToLower(f.mode))
	if f.sections {
		if mode != "" && mode != domain.ModeSections {
			return "", fmt.Errorf("--sections conflicts with --mode %s", f.mode)
		}
		return domain.ModeSections, nil
	}
	if mode != "" && !mode.Valid() {
		return "", fmt.Errorf("--mode must be concat|sections, got %s", f.mode)
	}
	return mode, nil
}

func (f queryFlags) retrieval() (*bool, error) {
	switch {
	case f.retrieve && f.noRetrieve:
		return nil, errors.New("--retrieve and --no-retrieve are mutually exclusive")
	case f.retrieve:
		on := true
		return &on, nil
	case f.noRetrieve:
		off := false
		return &off, nil
	}
	return nil, nil
}

func (s *session) runQuery(cmd *cobra.Command, flags queryFlags, command string, args []string) error {
	mode, err := flags.outputMode()
	if err != nil {
		return err
	}
	retrieve, err := flags.retrieval()
	if err != nil {
		return err
	}

	container, err := s.load(cmd)
	if err != nil {
		return err
	}
	if err := appconfig.Validate(container.Config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	timeout := flags.timeout
	if timeout == 0 {
		timeout = container.Config.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := domain.QueryRequest{
		Context:      ctx,
		Command:      command,
		Args:         args,
		InvocationID: uuid.NewString(),
		Mode:         mode,
		Retrieve:     retrieve,
	}
	// Sections are laid out after the run; only concat answers stream inline.
	var writer *streamWriter
	if flags.stream && !flags.json && container.Config.ModeFor(mode) == domain.ModeConcat {
		writer = NewStreamWriter(cmd.OutOrStdout())
		req.StreamWriter = writer
	}

	var spinner *Spinner
	if writer == nil && !flags.json && !color.NoColor {
		spinner = NewSpinner(cmd.ErrOrStderr())
		spinner.Start()
	}

	started := time.Now()
	out, runErr := container.QueryService.Run(req)
	if spinner != nil {
		spinner.Stop()
	}

	s.recordHistory(container, req, out, runErr, time.Since(started))
	s.writeMetrics(container)

	if runErr != nil {
		return runErr
	}

	renderer := NewRenderer(cmd.OutOrStdout())
	switch {
	case flags.json:
		return renderer.JSON(out)
	case writer != nil && writer.Wrote():
		return nil
	default:
		renderer.Output(out)
		return nil
	}
}

func (s *session) recordHistory(container *app.Container, req domain.QueryRequest, out domain.CommandOutput, runErr error, elapsed time.Duration) {
	if container.HistoryStore == nil || req.Command != domain.CommandName {
		return
	}
	record := domain.HistoryRecord{
		Timestamp:    time.Now(),
		InvocationID: req.InvocationID,
		Query:        strings.Join(req.Args, " "),
		Mode:         container.Config.ModeFor(req.Mode),
		Retrieval:    container.Config.RetrievalFor(req.Retrieve),
		Output:       out.Text,
		SectionCount: len(out.Sections),
		ErrorKind:    domain.KindOf(runErr),
		DurationMS:   elapsed.Milliseconds(),
	}
	if err := container.HistoryStore.Save(record); err != nil {
		container.Logger.Warn("history save failed", map[string]interface{}{"error": err.Error(), "path": container.HistoryStore.Path()})
	}
}

func (s *session) writeMetrics(container *app.Container) {
	if s.metricsOut == "" {
		return
	}
	if err := container.Metrics.WriteTextfile(s.metricsOut); err != nil {
		container.Logger.Warn("metrics write failed", map[string]interface{}{"error": err.Error(), "path": s.metricsOut})
	}
}

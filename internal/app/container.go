package app

import (
	"context"
	"io"
	"net/http"

	"github.com/spf13/afero"

	"github.com/doeshing/rag-go/internal/application/doctor"
	"github.com/doeshing/rag-go/internal/application/query"
	"github.com/doeshing/rag-go/internal/domain"
	"github.com/doeshing/rag-go/internal/infrastructure/ai"
	"github.com/doeshing/rag-go/internal/infrastructure/config"
	"github.com/doeshing/rag-go/internal/infrastructure/history"
	"github.com/doeshing/rag-go/internal/infrastructure/metrics"
	"github.com/doeshing/rag-go/internal/infrastructure/transport"
	"github.com/doeshing/rag-go/internal/pkg/logger"
	"github.com/doeshing/rag-go/internal/ports"
)

// Options tunes how the container is built. Zero values select production defaults.
type Options struct {
	ConfigPath string
	// LogLevel overrides logging.level from the config when set.
	LogLevel  string
	LogOutput io.Writer
	Fs        afero.Fs
	// HTTPClient is shared by every outbound call.
	HTTPClient *http.Client
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	QueryService  *query.Service
	DoctorService *doctor.Service
	// HistoryStore is nil unless history.enabled is set.
	HistoryStore ports.HistoryRepository
	Metrics      *metrics.Recorder
	Logger       ports.Logger
}

// BuildContainer constructs the dependency graph. The config is loaded but not validated,
// so diagnostics can still run against a broken file.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	cfgLoader := config.NewFileLoaderFs(fsys, opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.Logging.Pretty, Output: opts.LogOutput})

	httpTransport := transport.New(opts.HTTPClient)
	recorder := metrics.NewRecorder()

	var historyStore ports.HistoryRepository
	if cfg.History.Enabled {
		historyStore = history.NewSQLiteStore(cfg.History.Path)
	}

	queryService := &query.Service{
		Config:    cfg,
		Retriever: ai.NewRetriever(cfg.Retrieval, httpTransport, log),
		Completer: ai.NewCompleter(cfg.Completion, httpTransport, log),
		Codec:     ai.NewCodec(),
		Metrics:   recorder,
		Logger:    log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Transport:      httpTransport,
		History:        historyStore,
	}

	return &Container{
		Config:        cfg,
		ConfigLoader:  cfgLoader,
		QueryService:  queryService,
		DoctorService: doctorService,
		HistoryStore:  historyStore,
		Metrics:       recorder,
		Logger:        log,
	}, nil
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/photovault/internal/client/config"
	"github.com/dmitrijs2005/photovault/internal/client/picker"
	"github.com/dmitrijs2005/photovault/internal/client/repositories"
	"github.com/dmitrijs2005/photovault/internal/client/services"
	"github.com/dmitrijs2005/photovault/internal/client/transport"
	"github.com/dmitrijs2005/photovault/internal/filex"
	"github.com/dmitrijs2005/photovault/internal/hashx"
	"github.com/dmitrijs2005/photovault/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the ingestion engine, the file picker and the local journal
// behind the interactive command loop.
type App struct {
	config *config.Config
	ingest *services.IngestService
	source picker.Source
	api    transport.Client
	repos  *repositories.Repositories
	log    logging.Logger

	reader   *bufio.Reader
	out      io.Writer
	tokenSet bool
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dataDir := c.DataDir
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve data dir: %w", err)
		}
		dataDir = filepath.Join(base, "photovault")
	}
	if _, err := filex.EnsureDir(dataDir); err != nil {
		return nil, err
	}

	repos, err := repositories.InitDatabase(ctx, filepath.Join(dataDir, "photovault.db"))
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	api := transport.NewHTTPClient(c.ServerEndpointURL, c.RequestTimeout, c.UploadTimeout, log)
	hasher := hashx.NewSHA256Hasher(log)
	store := services.NewStore()

	ingest := services.NewIngestService(api, hasher, repos.History, store, log, services.Options{
		MaxUploadSize: c.MaxUploadSize,
		Concurrency:   c.UploadConcurrency,
		Mode:          c.AnalysisMode,
	})

	return &App{
		config: c,
		ingest: ingest,
		source: picker.NewDirSource(c.GalleryDir, c.CameraDir, log),
		api:    api,
		repos:  repos,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.repos.Close()

	fmt.Fprintln(a.out, "PhotoVault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

// status renders the prompt suffix: auth state plus a session summary.
func (a *App) status() string {
	auth := "anonymous"
	if a.tokenSet {
		auth = "authorized"
	}
	stats := a.ingest.Store().Stats()
	if stats.Total == 0 {
		return auth
	}
	return fmt.Sprintf("%s | %d queued, %d done, %d failed", auth, stats.Pending, stats.Done, stats.Error)
}

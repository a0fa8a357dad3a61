package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photovault/internal/client/config"
	"github.com/dmitrijs2005/photovault/internal/client/picker"
	"github.com/dmitrijs2005/photovault/internal/client/repositories"
	"github.com/dmitrijs2005/photovault/internal/client/services"
	"github.com/dmitrijs2005/photovault/internal/client/transport"
	"github.com/dmitrijs2005/photovault/internal/hashx"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// backend fakes the upload API end to end: prepare hands out a presigned
// URL pointing back at itself, PUT accepts the bytes, complete confirms.
func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/media/upload/prepare", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filename string `json:"filename"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"duplicate":         false,
			"upload_id":         "up-" + req.Filename,
			"storage_key":       "key-" + req.Filename,
			"presigned_put_url": srv.URL + "/blob/" + req.Filename,
		})
	})
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/media/upload/complete", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UploadID string `json:"upload_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"media_id": "media-" + req.UploadID,
			"job_id":   "job-1",
			"status":   "processing",
		})
	})
	mux.HandleFunc("/media/upload/group-complete", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Items []any `json:"items"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"group_id":     "grp-1",
			"total_images": len(req.Items),
		})
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testApp(t *testing.T, serverURL string) (*App, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))

	gallery := t.TempDir()
	writePNG(t, filepath.Join(gallery, "one.png"))
	writePNG(t, filepath.Join(gallery, "two.png"))

	repos, err := repositories.InitDatabase(ctx, "file:appcmd_"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerEndpointURL = serverURL
	cfg.GalleryDir = gallery
	cfg.CameraDir = gallery

	api := transport.NewHTTPClient(serverURL, 5*time.Second, 5*time.Second, log)
	store := services.NewStore()
	ingest := services.NewIngestService(api, hashx.NewSHA256Hasher(log), repos.History, store, log, services.Options{})

	var out bytes.Buffer
	return &App{
		config: cfg,
		ingest: ingest,
		source: picker.NewDirSource(gallery, gallery, log),
		api:    api,
		repos:  repos,
		log:    log,
		reader: bufio.NewReader(bytes.NewReader(nil)),
		out:    &out,
	}, &out
}

func TestApp_PickUploadHistory(t *testing.T) {
	srv := backend(t)
	app, out := testApp(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, app.Pick(ctx))
	assert.Contains(t, out.String(), "Queued 2 file(s).")

	require.NoError(t, app.Upload(ctx))
	assert.Contains(t, out.String(), "one.png uploaded, media media-up-one.png")
	assert.Contains(t, out.String(), "two.png uploaded, media media-up-two.png")

	out.Reset()
	require.NoError(t, app.History(ctx))
	assert.Contains(t, out.String(), "media-up-one.png")
	assert.Contains(t, out.String(), "media-up-two.png")

	out.Reset()
	require.NoError(t, app.Stats(ctx))
	assert.Contains(t, out.String(), "done: 2")
}

func TestApp_GroupCommand(t *testing.T) {
	srv := backend(t)
	app, out := testApp(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, app.Pick(ctx))
	require.NoError(t, app.Group(ctx, 0))

	assert.Contains(t, out.String(), "Group grp-1 committed with 2 new image(s).")
}

func TestApp_UploadWithEmptyQueue(t *testing.T) {
	srv := backend(t)
	app, out := testApp(t, srv.URL)

	require.NoError(t, app.Upload(context.Background()))
	assert.Contains(t, out.String(), "Nothing queued")
}

func TestApp_RetryOutOfRange(t *testing.T) {
	srv := backend(t)
	app, out := testApp(t, srv.URL)

	require.NoError(t, app.Retry(context.Background(), 7))
	assert.Contains(t, out.String(), "No item 7")
}

func TestApp_ClearAndList(t *testing.T) {
	srv := backend(t)
	app, out := testApp(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, app.Pick(ctx))
	require.NoError(t, app.Clear(ctx))
	out.Reset()

	require.NoError(t, app.List(ctx))
	assert.Contains(t, out.String(), "Queue is empty.")
}

package picker

import (
	"context"
	"fmt"
	"image"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/photovault/internal/client/models"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".heic": {},
}

// DirSource is a filesystem-backed Source: the gallery is a directory of
// image files, the camera drops captures into a handoff directory.
type DirSource struct {
	galleryDir string
	cameraDir  string
	log        logging.Logger
}

func NewDirSource(galleryDir, cameraDir string, log logging.Logger) *DirSource {
	return &DirSource{galleryDir: galleryDir, cameraDir: cameraDir, log: log}
}

func (s *DirSource) PickFromGallery(ctx context.Context) ([]models.SelectedFile, error) {
	files, err := s.listImages(ctx, s.galleryDir)
	if err != nil {
		return nil, fmt.Errorf("reading gallery: %w", err)
	}
	return files, nil
}

func (s *DirSource) TakePhoto(ctx context.Context) (*models.SelectedFile, error) {
	files, err := s.listImages(ctx, s.cameraDir)
	if err != nil {
		return nil, fmt.Errorf("reading camera captures: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no camera capture found in %s", s.cameraDir)
	}

	newest := files[0]
	for _, f := range files[1:] {
		if f.TakenAt.After(newest.TakenAt) {
			newest = f
		}
	}
	return &newest, nil
}

func (s *DirSource) listImages(ctx context.Context, dir string) ([]models.SelectedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []models.SelectedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}

		file, err := Describe(filepath.Join(dir, e.Name()))
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable image", "name", e.Name(), "error", err)
			continue
		}
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	return files, nil
}

// Describe builds an immutable SelectedFile descriptor for a local image:
// size and capture time from the filesystem, MIME type from the extension
// (content sniffing as fallback), pixel bounds from the image header.
// Bounds stay zero for formats the client cannot decode.
func Describe(path string) (models.SelectedFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return models.SelectedFile{}, fmt.Errorf("stat %s: %w", path, err)
	}

	file := models.SelectedFile{
		Path:        path,
		Filename:    filepath.Base(path),
		Size:        st.Size(),
		ContentType: contentType(path),
		TakenAt:     st.ModTime(),
	}

	if w, h, err := imageBounds(path); err == nil {
		file.Width = w
		file.Height = h
	}

	return file, nil
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	return http.DetectContentType(head[:n])
}

func imageBounds(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/singleflight"

	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/logging"
	"virtual-drive/internal/mediatypes"
	"virtual-drive/internal/metrics"
)

// Size is the bounding box thumbnails are fitted into.
const Size = 200

var (
	// ErrDisabled is returned by a Generator created with enabled=false.
	ErrDisabled = errors.New("thumbnails disabled")
	// ErrUnsupported is returned for anything but images and videos.
	ErrUnsupported = errors.New("no thumbnail for this file type")
	// ErrBusy is returned instead of generating while memory is under pressure.
	// Cached thumbnails are still served.
	ErrBusy = errors.New("thumbnail generation paused under memory pressure")
)

// Gate reports whether new work should be held back.
type Gate interface {
	IsPaused() bool
}

// Generator produces and caches thumbnails.
type Generator struct {
	cacheDir string
	enabled  bool
	gate     Gate
	flight   singleflight.Group
}

// NewGenerator creates a Generator writing into cacheDir.
func NewGenerator(cacheDir string, enabled bool) *Generator {
	if enabled {
		logging.Debug("Thumbnail generator: enabled, cache dir: %s", cacheDir)
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			logging.Warn("Thumbnail generator: failed to create cache dir: %v", err)
		}
	} else {
		logging.Debug("Thumbnail generator: disabled")
	}
	return &Generator{cacheDir: cacheDir, enabled: enabled}
}

// SetGate installs a pressure gate consulted before each generation.
func (g *Generator) SetGate(gate Gate) {
	g.gate = gate
}

// IsEnabled reports whether thumbnails are generated at all.
func (g *Generator) IsEnabled() bool {
	return g.enabled
}

// CachePath returns where the thumbnail for fp is stored.
func (g *Generator) CachePath(fp string) string {
	return filepath.Join(g.cacheDir, fp+".jpg")
}

// Get returns the JPEG thumbnail for the file at path, whose content
// fingerprint is fp. Concurrent requests for the same fingerprint share one
// generation.
func (g *Generator) Get(ctx context.Context, path, fp string, fileType mediatypes.FileType) ([]byte, error) {
	if !g.enabled {
		return nil, ErrDisabled
	}
	if !fingerprint.Valid(fp) {
		return nil, fmt.Errorf("invalid fingerprint %q", fp)
	}
	if fileType != mediatypes.FileTypeImage && fileType != mediatypes.FileTypeVideo {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, fileType)
	}

	cachePath := g.CachePath(fp)
	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailCacheHits.Inc()
		logging.Debug("Thumbnail cache hit: %s", path)
		return data, nil
	}
	if g.gate != nil && g.gate.IsPaused() {
		return nil, ErrBusy
	}

	v, err, _ := g.flight.Do(fp, func() (interface{}, error) {
		if data, err := os.ReadFile(cachePath); err == nil {
			return data, nil
		}
		return g.generate(ctx, path, cachePath, fileType)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (g *Generator) generate(ctx context.Context, path, cachePath string, fileType mediatypes.FileType) ([]byte, error) {
	start := time.Now()
	label := string(fileType)

	if _, err := os.Stat(path); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(label, "error").Inc()
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	logging.Debug("Thumbnail generating: %s (type: %s)", path, fileType)

	var img image.Image
	var err error
	if fileType == mediatypes.FileTypeImage {
		img, err = loadImage(ctx, path)
	} else {
		img, err = videoFrame(ctx, path)
	}
	if err == nil && img == nil {
		err = errors.New("decoder returned no image")
	}
	if err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(label, "error").Inc()
		return nil, fmt.Errorf("thumbnail generation failed: %w", err)
	}

	thumb := imaging.Fit(img, Size, Size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		metrics.ThumbnailGenerationsTotal.WithLabelValues(label, "error").Inc()
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := writeAtomic(cachePath, buf.Bytes()); err != nil {
		logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
	} else {
		logging.Debug("Thumbnail cached: %s", cachePath)
	}

	metrics.ThumbnailGenerationsTotal.WithLabelValues(label, "success").Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return buf.Bytes(), nil
}

// writeAtomic writes data next to path and renames it into place so readers
// never see a partial JPEG.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".thumb-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Purge removes the cached thumbnail for fp, if any.
func (g *Generator) Purge(fp string) error {
	if err := os.Remove(g.CachePath(fp)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"virtual-drive/internal/logging"
)

const (
	// MaxImageDimension is the largest width or height decoded at full size.
	MaxImageDimension = 4096

	// MaxImagePixels caps width*height before downscaling (~80MB in RGBA).
	MaxImagePixels = 20_000_000
)

// loadImage decodes path with imaging, falling back to ffmpeg for formats
// the Go decoders do not cover (HEIC, AVIF, camera RAW).
func loadImage(ctx context.Context, path string) (image.Image, error) {
	img, err := loadConstrained(path, MaxImageDimension, MaxImagePixels)
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging decode failed for %s: %v, trying ffmpeg", path, err)

	img, ffErr := ffmpegFrame(ctx, path, false)
	if ffErr != nil {
		return nil, fmt.Errorf("all image decode methods failed for %s: %w", path, ffErr)
	}
	return img, nil
}

// loadConstrained opens an image, downscaling it when it exceeds the limits.
func loadConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	width, height, err := dimensions(path)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return img, nil
	}

	targetWidth, targetHeight := width, height
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}
	if pixels := targetWidth * targetHeight; pixels > maxPixels {
		scale := float64(maxPixels) / float64(pixels)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}

func dimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

// videoFrame grabs a frame one second in, or the first frame for clips
// shorter than that.
func videoFrame(ctx context.Context, path string) (image.Image, error) {
	img, err := ffmpegFrame(ctx, path, true)
	if err == nil {
		return img, nil
	}
	logging.Debug("ffmpeg seek failed for %s: %v, retrying from first frame", path, err)
	return ffmpegFrame(ctx, path, false)
}

func ffmpegFrame(ctx context.Context, path string, seek bool) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := []string{"-i", path}
	if seek {
		args = append(args, "-ss", "00:00:01")
	}
	args = append(args, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	img, _, err := image.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

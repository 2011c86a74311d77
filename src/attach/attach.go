// Package attach turns files on disk into image attachments for chat
// messages.
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/elee1766/mydrawer/src/aisdk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// DefaultMaxBytes caps a single attachment.
const DefaultMaxBytes = 20 * 1024 * 1024

var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file too large")
)

// Loaded is an attachment together with the image part sent to the model.
type Loaded struct {
	Attachment aisdk.Attachment
	Part       aisdk.Part
}

// Loader reads attachments from Fs.
type Loader struct {
	Fs       afero.Fs
	MaxBytes int64
	Logger   *slog.Logger
}

// NewLoader returns a loader over fs with the default size cap.
func NewLoader(fs afero.Fs, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		Fs:       fs,
		MaxBytes: DefaultMaxBytes,
		Logger:   logger.With("component", "attach"),
	}
}

// Load reads path, sniffs its type and returns it as an image attachment.
func (l *Loader) Load(path string) (*Loaded, error) {
	info, err := l.Fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrTooLarge, path, info.Size(), limit)
	}

	data, err := afero.ReadFile(l.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	mtype := mimetype.Detect(data)
	mime := mtype.String()
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotImage, path, mime)
	}

	if l.Logger != nil {
		l.Logger.Debug("attachment loaded", "path", path, "type", mime, "size", len(data))
	}

	return &Loaded{
		Attachment: aisdk.Attachment{
			Path: path,
			Name: filepath.Base(path),
			Type: mime,
			Size: int64(len(data)),
		},
		Part: aisdk.ImagePart(base64.StdEncoding.EncodeToString(data), mime),
	}, nil
}

// LoadAll loads every path, stopping at the first failure.
func (l *Loader) LoadAll(paths []string) ([]*Loaded, error) {
	out := make([]*Loaded, 0, len(paths))
	for _, p := range paths {
		loaded, err := l.Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, loaded)
	}
	return out, nil
}

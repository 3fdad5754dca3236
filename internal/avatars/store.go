package avatars

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooLarge        = errors.New("profile image is too large")
	ErrUnsupportedType = errors.New("profile image must be a PNG, JPEG, GIF or WebP file")
	ErrNotFound        = errors.New("profile image not found")
)

const (
	// DefaultMaxBytes is the upload limit when none is configured.
	DefaultMaxBytes = 2 << 20

	// multipartOverhead leaves room for the other form fields of an upload.
	multipartOverhead = 64 << 10
)

// extensions maps accepted image types to their stored file extension.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is an uploaded profile picture whose content has been sniffed.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Decode reads at most maxBytes from r and accepts it only when the content
// is one of the supported image types. The declared type is ignored.
func Decode(r io.Reader, maxBytes int64) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read profile image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedType
	}

	mt := mimetype.Detect(data)
	for contentType, ext := range extensions {
		if mt.Is(contentType) {
			return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
		}
	}
	return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, mt.String())
}

// RequestLimit is the largest multipart body accepted for an upload of maxBytes.
func RequestLimit(maxBytes int64) int64 {
	return maxBytes + multipartOverhead
}

// FromRequest returns the image uploaded in field, or nil when the request
// carries no file for it. Must run before anything else parses the form.
func FromRequest(w http.ResponseWriter, r *http.Request, field string, maxBytes int64) (*Image, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, nil
	}

	limit := RequestLimit(maxBytes)
	if r.ContentLength > limit {
		return nil, ErrTooLarge
	}
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, ErrTooLarge
			}
			return nil, fmt.Errorf("parse upload: %w", err)
		}
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	if header.Size > maxBytes {
		return nil, ErrTooLarge
	}
	return Decode(file, maxBytes)
}

// Store keeps one uploaded profile image per user on local disk.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates the avatar directory if needed.
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes is the largest accepted upload.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save replaces the user's image and returns the path it is served from.
// The path carries a content hash so browsers pick up a new picture.
func (s *Store) Save(userID uint, img *Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", ErrUnsupportedType
	}

	tmpFile, err := os.CreateTemp(s.dir, "avatar_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(img.Data); err != nil {
		return "", fmt.Errorf("write profile image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := s.remove(userID); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, fmt.Sprintf("%d%s", userID, img.Ext))); err != nil {
		return "", fmt.Errorf("store profile image: %w", err)
	}

	sum := sha256.Sum256(img.Data)
	return fmt.Sprintf("/avatars/%d?v=%x", userID, sum[:6]), nil
}

// Path returns the file holding the user's image.
func (s *Store) Path(userID uint) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(s.dir, fmt.Sprintf("%d%s", userID, ext))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// remove deletes every stored variant of the user's image.
func (s *Store) remove(userID uint) error {
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.dir, fmt.Sprintf("%d%s", userID, ext)))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes bounds a single stored object.
const MaxUploadBytes = 25 << 20

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".mp4": true, ".webm": true, ".mp3": true, ".wav": true, ".pdf": true,
}

// LocalStore keeps objects on disk under dir and publishes them below baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the media directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory objects are stored in.
func (s *LocalStore) Dir() string { return s.dir }

// BaseURL returns the public URL prefix for stored objects.
func (s *LocalStore) BaseURL() string { return s.baseURL }

// Put stores r for owner and returns its public URL.
func (s *LocalStore) Put(_ context.Context, ownerID, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("file type %q is not allowed", ext)
	}
	ownerDir := url.PathEscape(ownerID)
	if ownerDir == "" || ownerDir == "." || ownerDir == ".." {
		return "", errors.New("invalid owner id")
	}
	name := uuid.NewString() + ext

	dir := filepath.Join(s.dir, ownerDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create owner media dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	n, err := io.Copy(f, io.LimitReader(r, MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxUploadBytes {
		err = fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return s.baseURL + "/" + ownerDir + "/" + name, nil
}

// Delete removes the object behind a public URL. Missing objects are not an
// error; URLs outside baseURL return ErrForeignURL.
func (s *LocalStore) Delete(_ context.Context, rawURL string) error {
	p, err := s.pathFor(rawURL)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) pathFor(rawURL string) (string, error) {
	prefix := s.baseURL + "/"
	if s.baseURL == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", ErrForeignURL
	}
	rel := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(rel, "?#"); i >= 0 {
		rel = rel[:i]
	}
	cleaned := path.Clean("/" + rel)
	if cleaned == "/" || strings.Contains(rel, "..") {
		return "", ErrForeignURL
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

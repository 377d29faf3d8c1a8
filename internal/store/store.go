// Package store persists the dashboard configuration and the window bounds
// between launches. The password is sealed with a key kept next to the
// store file.
package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

const (
	// DefaultLocation is the store directory before home expansion.
	DefaultLocation = "~/.config/protect-viewer"

	storeFile = "store.yaml"
	keyFile   = "secret.key"

	keySize   = 32
	nonceSize = 24
)

// ErrNotConfigured is returned by Require when no configuration was saved.
var ErrNotConfigured = errors.New("protect-viewer is not configured")

// Bounds is the outer window rectangle in screen pixels.
type Bounds struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Valid reports whether b describes a usable window.
func (b Bounds) Valid() bool { return b.Width > 0 && b.Height > 0 }

// document is the on-disk layout of store.yaml.
type document struct {
	URL      string  `yaml:"url,omitempty"`
	Username string  `yaml:"username,omitempty"`
	Password string  `yaml:"password,omitempty"`
	Bounds   *Bounds `yaml:"bounds,omitempty"`
}

// FileStore keeps its state in a directory. It is safe for concurrent use
// within one process.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

var _ protect.ConfigLoader = (*FileStore)(nil)

// DefaultDir returns DefaultLocation with the home directory expanded.
func DefaultDir() (string, error) {
	return homedir.Expand(DefaultLocation)
}

// Open returns a store rooted at dir, creating the directory if needed. A
// leading "~" is expanded.
func Open(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		dir = DefaultLocation
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand store directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: expanded, logger: logger.Named("store")}, nil
}

// Dir returns the resolved store directory.
func (s *FileStore) Dir() string { return s.dir }

// LoadConfig returns the saved configuration, or nil when nothing was saved.
func (s *FileStore) LoadConfig(ctx context.Context) (*protect.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.URL == "" && doc.Username == "" && doc.Password == "" {
		return nil, nil
	}
	cfg := &protect.Configuration{URL: doc.URL, Username: doc.Username}
	if doc.Password != "" {
		key, err := s.readKey()
		if err != nil {
			return nil, err
		}
		if cfg.Password, err = unseal(doc.Password, key); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Require is LoadConfig that treats a missing or incomplete configuration
// as ErrNotConfigured.
func (s *FileStore) Require(ctx context.Context) (*protect.Configuration, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	return cfg, nil
}

// SaveConfig validates and persists cfg, keeping any stored window bounds.
func (s *FileStore) SaveConfig(ctx context.Context, cfg protect.Configuration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	key, err := s.keyForWrite()
	if err != nil {
		return err
	}
	sealed, err := seal(cfg.Password, key)
	if err != nil {
		return err
	}
	doc.URL, doc.Username, doc.Password = cfg.URL, cfg.Username, sealed
	if err := s.write(doc); err != nil {
		return err
	}
	s.logger.Info("Configuration saved.", zap.String("url", cfg.URL), zap.String("username", cfg.Username))
	return nil
}

// LoadBounds returns the saved window bounds, or nil when none are stored.
func (s *FileStore) LoadBounds() (*Bounds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc.Bounds == nil || !doc.Bounds.Valid() {
		return nil, nil
	}
	b := *doc.Bounds
	return &b, nil
}

// SaveBounds stores b. Invalid bounds are ignored.
func (s *FileStore) SaveBounds(b Bounds) error {
	if !b.Valid() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Bounds = &b
	return s.write(doc)
}

// Clear removes every stored setting, including the sealing key.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, name := range []string{storeFile, keyFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	s.logger.Info("Stored settings cleared.")
	return nil
}

func (s *FileStore) read() (document, error) {
	var doc document
	data, err := os.ReadFile(filepath.Join(s.dir, storeFile))
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read store: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse %s: %w", storeFile, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	return writeFileAtomic(filepath.Join(s.dir, storeFile), data)
}

func (s *FileStore) readKey() (*[keySize]byte, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil || len(decoded) != keySize {
		return nil, fmt.Errorf("sealing key in %s is corrupt", keyFile)
	}
	var key [keySize]byte
	copy(key[:], decoded)
	return &key, nil
}

// keyForWrite returns the existing key, generating one on first use.
func (s *FileStore) keyForWrite() (*[keySize]byte, error) {
	key, err := s.readKey()
	if err == nil {
		return key, nil
	}
	if _, statErr := os.Stat(filepath.Join(s.dir, keyFile)); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, err
	}
	key = new([keySize]byte)
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate sealing key: %w", err)
	}
	encoded := []byte(base64.StdEncoding.EncodeToString(key[:]))
	if err := writeFileAtomic(filepath.Join(s.dir, keyFile), encoded); err != nil {
		return nil, err
	}
	s.logger.Debug("Generated a new sealing key.")
	return key, nil
}

func seal(plain string, key *[keySize]byte) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func unseal(sealed string, key *[keySize]byte) (string, error) {
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("stored password is corrupt")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, key)
	if !ok {
		return "", errors.New("stored password cannot be decrypted with the current key")
	}
	return string(plain), nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

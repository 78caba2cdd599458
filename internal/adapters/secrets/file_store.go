package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gitlab.com/simigo/client/datacore/internal/domain"
	"gitlab.com/simigo/client/datacore/pkg/crypto"
)

// FileStore keeps the credential pair in a single AES-GCM sealed file.
type FileStore struct {
	path   string
	keyHex string
	logger domain.Logger
	mu     sync.Mutex
}

// NewFileStore validates the key eagerly so a bad deployment fails at start.
func NewFileStore(path, aesKeyHex string, logger domain.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("secrets path is required")
	}
	if logger == nil {
		panic("logger cannot be nil in NewFileStore")
	}
	if _, err := crypto.EncryptAESGCM(aesKeyHex, nil); err != nil {
		return nil, fmt.Errorf("invalid secrets key: %w", err)
	}
	return &FileStore{path: filepath.Clean(path), keyHex: aesKeyHex, logger: logger}, nil
}

func (s *FileStore) Get(ctx context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("read secrets file: %w", err)
	}
	plain, err := crypto.DecryptAESGCM(s.keyHex, strings.TrimSpace(string(raw)))
	if err != nil {
		s.logger.Warn(ctx, "Stored credentials are unreadable, treating as absent", "error", err)
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	var creds domain.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return creds, nil
}

// Set writes through a temp file and rename so readers never see a torn file.
func (s *FileStore) Set(ctx context.Context, creds domain.Credentials) error {
	plain, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	sealed, err := crypto.EncryptAESGCM(s.keyHex, plain)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace secrets file: %w", err)
	}
	s.logger.Debug(ctx, "Stored credentials", "fingerprint", crypto.Fingerprint(creds.AccessToken))
	return nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove secrets file: %w", err)
	}
	return nil
}

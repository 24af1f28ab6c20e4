package keystore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github/meridian/algo-wallet/internal/util"
)

var (
	// ErrNotFound indicates no secret is stored under the given id.
	ErrNotFound = errors.New("keystore entry not found")
	// ErrMACMismatch indicates a wrong password or a corrupted entry.
	ErrMACMismatch = errors.New("invalid password: MAC mismatch")
)

// Service provides encrypted at-rest storage of signing secrets (ed25519
// seeds and HD wallet master seeds), one keystore v3 JSON file per id.
type Service interface {
	// PutSecret encrypts and stores a secret under the given id.
	PutSecret(ctx context.Context, id string, secret []byte, password string) error

	// GetSecret decrypts the secret stored under the given id.
	GetSecret(ctx context.Context, id string, password string) ([]byte, error)

	// Exists checks whether a secret is stored under the given id.
	Exists(ctx context.Context, id string) (bool, error)

	// Delete removes the secret stored under the given id.
	Delete(ctx context.Context, id string) error
}

type service struct {
	dir    string
	params *ScryptParams
}

// NewService creates a keystore rooted at dir, using the default scrypt
// cost.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(dir string) (Service, error) {
	return NewServiceWithParams(dir, DefaultScryptParams())
}

// NewServiceWithParams creates a keystore with explicit scrypt parameters.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewServiceWithParams(dir string, params *ScryptParams) (Service, error) {
	if dir == "" {
		return nil, errors.New("keystore directory is required")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create keystore directory")
	}

	return &service{dir: dir, params: params}, nil
}

// PutSecret encrypts and stores a secret under the given id.
func (s *service) PutSecret(ctx context.Context, id string, secret []byte, password string) error {
	log := util.LogFromContext(ctx)

	keystoreJSON, err := s.encryptSecret(secret, password)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to encrypt secret")
		return errors.Wrap(err, "failed to encrypt secret")
	}

	data, err := json.Marshal(keystoreJSON)
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore JSON")
	}

	if err := os.WriteFile(s.path(id), data, 0o600); err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to write keystore file")
		return errors.Wrap(err, "failed to write keystore file")
	}

	return nil
}

// GetSecret decrypts the secret stored under the given id.
func (s *service) GetSecret(ctx context.Context, id string, password string) ([]byte, error) {
	log := util.LogFromContext(ctx)

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, id)
		}
		return nil, errors.Wrap(err, "failed to read keystore file")
	}

	var keystoreJSON KeystoreJSON
	if err := json.Unmarshal(data, &keystoreJSON); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	secret, err := s.decryptSecret(&keystoreJSON, password)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Failed to decrypt secret")
		return nil, err
	}

	return secret, nil
}

// Exists checks whether a secret is stored under the given id.
func (s *service) Exists(_ context.Context, id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to stat keystore file")
	}

	return true, nil
}

// Delete removes the secret stored under the given id.
func (s *service) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(ErrNotFound, id)
		}
		return errors.Wrap(err, "failed to remove keystore file")
	}

	return nil
}

// path maps an id (an address or wallet id) to its keystore file. Ids are
// hex-escaped when they contain characters unsafe for filenames.
func (s *service) path(id string) string {
	safe := id
	if strings.ContainsAny(id, "/\\.") {
		safe = hex.EncodeToString([]byte(id))
	}

	return filepath.Join(s.dir, safe+".json")
}

package hdwallet

import (
	"context"
	"crypto/sha512"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
	"github/meridian/algo-wallet/internal/keystore"
)

// ErrWalletNotFound indicates no unlocked or stored seed exists for the
// wallet id.
var ErrWalletNotFound = errors.New("hd wallet not found")

// SeedFromMnemonic converts a BIP39 mnemonic and passphrase to a 64-byte
// wallet seed using PBKDF2 (BIP39 standard).
func SeedFromMnemonic(mnemonic string, passphrase string) []byte {
	// BIP39: seed = PBKDF2(mnemonic, "mnemonic" + passphrase, 2048, 64, SHA512)
	const (
		pbkdf2Iterations = 2048 // BIP39 standard iterations
		pbkdf2KeyLength  = 64   // BIP39 standard key length (512 bits)
	)

	return pbkdf2.Key(
		[]byte(mnemonic),
		[]byte("mnemonic"+passphrase),
		pbkdf2Iterations,
		pbkdf2KeyLength,
		sha512.New,
	)
}

// Manager keeps unlocked wallet seeds in memory with thread-safe access,
// loading them on demand from the encrypted keystore. Seeds never leave the
// process; Clear zeroes them.
type Manager struct {
	keystoreService keystore.Service

	mu    sync.RWMutex
	seeds map[string][]byte
}

// NewManager creates a seed manager backed by the given keystore.
func NewManager(keystoreService keystore.Service) *Manager {
	return &Manager{
		keystoreService: keystoreService,
		seeds:           make(map[string][]byte),
	}
}

// keystoreID namespaces wallet seeds apart from account keys.
func keystoreID(walletID string) string {
	return "hdwallet-" + walletID
}

// Import stores a wallet seed in the keystore and unlocks it.
func (m *Manager) Import(ctx context.Context, walletID string, seed []byte, password string) error {
	if err := m.keystoreService.PutSecret(ctx, keystoreID(walletID), seed, password); err != nil {
		return errors.Wrap(err, "failed to store wallet seed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds[walletID] = append([]byte(nil), seed...)

	return nil
}

// Unlock loads a wallet seed from the keystore into memory.
func (m *Manager) Unlock(ctx context.Context, walletID string, password string) error {
	seed, err := m.keystoreService.GetSecret(ctx, keystoreID(walletID), password)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return errors.Wrap(ErrWalletNotFound, walletID)
		}
		return errors.Wrap(err, "failed to load wallet seed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds[walletID] = seed

	return nil
}

// Seed returns a copy of the unlocked seed for the wallet id.
func (m *Manager) Seed(walletID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seed, ok := m.seeds[walletID]
	if !ok {
		return nil, errors.Wrap(ErrWalletNotFound, walletID)
	}

	// Return a copy to prevent external modification
	seedCopy := make([]byte, len(seed))
	copy(seedCopy, seed)

	return seedCopy, nil
}

// IsUnlocked checks whether the wallet's seed is in memory.
func (m *Manager) IsUnlocked(walletID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.seeds[walletID]

	return ok
}

// Clear zeroes and drops all unlocked seeds.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, seed := range m.seeds {
		for i := range seed {
			seed[i] = 0
		}
		delete(m.seeds, id)
	}
}

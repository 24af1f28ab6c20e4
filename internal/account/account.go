package account

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound indicates the address is unknown to the store.
var ErrNotFound = errors.New("account not found")

// LedgerDetail identifies the hardware device and key slot of a Ledger
// account.
type LedgerDetail struct {
	// DeviceID is the identifier of the paired Bluetooth peripheral.
	DeviceID string
	// AccountIndex selects the key slot on the device.
	AccountIndex uint32
}

// HDWalletDetail locates an account's key inside a hierarchical wallet.
type HDWalletDetail struct {
	WalletID string
	Account  uint32
	Change   uint32
	KeyIndex uint32
}

// Account is the signing-relevant metadata of one address, as supplied by
// the account store collaborator.
type Account struct {
	Address string
	Name    string

	// Ledger is set for accounts whose key lives on a hardware device.
	Ledger *LedgerDetail
	// HDWallet is set for accounts derived from a hierarchical wallet
	// seed.
	HDWallet *HDWalletDetail
	// AuthAddress is the rekeyed-to address when spending authority has
	// been delegated; empty otherwise.
	AuthAddress string

	// Balance and HeldAssets feed the composer's max-transaction rules.
	Balance    uint64
	HeldAssets int

	// Threshold and Participants are set for joint (threshold multisig)
	// accounts.
	Threshold    int
	Participants []string
}

// IsRekeyed reports whether spending authority has been delegated away.
func (a *Account) IsRekeyed() bool {
	return a.AuthAddress != "" && a.AuthAddress != a.Address
}

// IsJoint reports whether the account is a threshold multisig account.
func (a *Account) IsJoint() bool {
	return a.Threshold > 0 && len(a.Participants) > 0
}

// Store is the account authority boundary: given an address it returns the
// metadata needed to select a signing backend. The wallet's persistence
// layer implements it in production.
type Store interface {
	Get(ctx context.Context, address string) (*Account, error)
}

// MemoryStore is a Store backed by a map, for tests and CLI use.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*Account),
	}
}

// Put inserts or replaces an account.
func (s *MemoryStore) Put(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[a.Address] = a
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, address string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[address]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, address)
	}

	return a, nil
}

package signing_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/meridian/algo-wallet/internal/account"
	"github/meridian/algo-wallet/internal/ledger"
	"github/meridian/algo-wallet/internal/signing"
	"github/meridian/algo-wallet/internal/txn"
)

func testAddress(seed byte) string {
	var a txn.Address
	for i := range a {
		a[i] = seed
	}

	return a.String()
}

// fakeSigner is a scripted synchronous backend.
type fakeSigner struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeSigner) SignTransaction(_ context.Context, raw []byte, identity account.SignerIdentity) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, identity.Signer)
	f.mu.Unlock()

	if f.failOn != "" && identity.Signer == f.failOn {
		return nil, errors.Wrap(signing.ErrKeyUnavailable, identity.Signer)
	}

	return append([]byte("signed:"), raw...), nil
}

// fakeTransport is a scripted device transport for the hardware path.
type fakeTransport struct {
	mu        sync.Mutex
	responses [][]byte
	scans     int
}

func (f *fakeTransport) Scan(_ context.Context) (<-chan ledger.Device, error) {
	f.mu.Lock()
	f.scans++
	f.mu.Unlock()

	ch := make(chan ledger.Device, 1)
	ch <- ledger.Device{ID: "nano-x-01"}
	close(ch)

	return ch, nil
}

func (f *fakeTransport) Connect(_ context.Context, _ ledger.Device) error { return nil }

func (f *fakeTransport) Exchange(_ context.Context, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.responses) == 0 {
		return nil, errors.New("unexpected exchange")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]

	return resp, nil
}

func (f *fakeTransport) StopScan()   {}
func (f *fakeTransport) Disconnect() {}

func okResponse(payload []byte) []byte {
	return append(append([]byte{}, payload...), 0x90, 0x00)
}

func newTestOrchestrator(store account.Store, local signing.Signer, hd signing.Signer, transport ledger.Transport) *signing.Orchestrator {
	var ledgerSigner *signing.LedgerSigner
	if transport != nil {
		ledgerSigner = signing.NewLedgerSigner(transport, time.Second)
	}

	return signing.NewOrchestrator(store, local, hd, ledgerSigner, nil)
}

func TestSignSessionSequentialLocal(t *testing.T) {
	addrA := testAddress(1)
	addrB := testAddress(2)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})
	store.Put(&account.Account{Address: addrB})

	local := &fakeSigner{}
	o := newTestOrchestrator(store, local, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: addrA, Raw: []byte("tx0")},
		{Index: 1, SignerAddress: addrB, Raw: []byte("tx1")},
		{Index: 2, SignerAddress: addrA, Raw: []byte("tx2")},
	})

	signed, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	require.Len(t, signed, 3)
	assert.Equal(t, []byte("signed:tx0"), signed[0])
	assert.Equal(t, []byte("signed:tx1"), signed[1])
	assert.Equal(t, []byte("signed:tx2"), signed[2])

	// Entries are processed strictly in order.
	assert.Equal(t, []string{addrA, addrB, addrA}, local.calls)
}

func TestSignSessionAllOrNothing(t *testing.T) {
	addrA := testAddress(1)
	addrB := testAddress(2)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})
	store.Put(&account.Account{Address: addrB})

	local := &fakeSigner{failOn: addrB}
	o := newTestOrchestrator(store, local, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: addrA, Raw: []byte("tx0")},
		{Index: 1, SignerAddress: addrB, Raw: []byte("tx1")},
		{Index: 2, SignerAddress: addrA, Raw: []byte("tx2")},
	})

	signed, err := o.SignSession(context.Background(), session, signing.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrKeyUnavailable))

	// A failure discards everything, including the signature already made.
	assert.Nil(t, signed)
	// The failure stops the session: the third entry is never attempted.
	assert.Equal(t, []string{addrA, addrB}, local.calls)
}

func TestSignSessionIsSingleUse(t *testing.T) {
	addrA := testAddress(1)
	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})

	o := newTestOrchestrator(store, &fakeSigner{}, nil, nil)
	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: addrA, Raw: []byte("tx0")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	_, err = o.SignSession(context.Background(), session, signing.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrSessionConsumed))
}

func TestSignSessionUnknownSignerFailsWithoutPlaceholders(t *testing.T) {
	addrA := testAddress(1)
	foreign := testAddress(9)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})

	local := &fakeSigner{}
	o := newTestOrchestrator(store, local, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: addrA, Raw: []byte("tx0")},
		{Index: 1, SignerAddress: foreign, Raw: []byte("tx1")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrNoSigner))
	// Identities resolve before any signing happens.
	assert.Empty(t, local.calls)
}

func TestSignSessionPlaceholders(t *testing.T) {
	addrA := testAddress(1)
	foreign := testAddress(9)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})

	o := newTestOrchestrator(store, &fakeSigner{}, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: foreign, Raw: []byte("tx0")},
		{Index: 1, SignerAddress: addrA, Raw: []byte("tx1")},
		{Index: 2, SignerAddress: "", Raw: []byte("tx2")},
	})

	signed, err := o.SignSession(context.Background(), session, signing.Options{AllowUnsigned: true})
	require.NoError(t, err)

	require.Len(t, signed, 3)
	assert.Nil(t, signed[0])
	assert.Equal(t, []byte("signed:tx1"), signed[1])
	assert.Nil(t, signed[2])
}

func TestSignSessionAllPlaceholdersFails(t *testing.T) {
	store := account.NewMemoryStore()
	o := newTestOrchestrator(store, &fakeSigner{}, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: testAddress(9), Raw: []byte("tx0")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{AllowUnsigned: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrNoSigner))
}

func TestSignSessionGroupsHardwareEntries(t *testing.T) {
	hwAddr := testAddress(3)
	addrA := testAddress(1)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})
	store.Put(&account.Account{
		Address: hwAddr,
		Ledger:  &account.LedgerDetail{DeviceID: "nano-x-01", AccountIndex: 0},
	})

	sig := bytes.Repeat([]byte{0xcc}, 64)
	transport := &fakeTransport{
		responses: [][]byte{okResponse(sig), okResponse(sig)},
	}

	o := newTestOrchestrator(store, &fakeSigner{}, nil, transport)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: hwAddr, Raw: composedPayment(t, hwAddr)},
		{Index: 1, SignerAddress: hwAddr, Raw: composedPayment(t, hwAddr)},
		{Index: 2, SignerAddress: addrA, Raw: []byte("tx2")},
	})

	signed, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	require.Len(t, signed, 3)
	assert.NotNil(t, signed[0])
	assert.NotNil(t, signed[1])
	assert.Equal(t, []byte("signed:tx2"), signed[2])

	// Both hardware entries share one operation: a single scan.
	assert.Equal(t, 1, transport.scans)
}

func TestSignSessionGroupsInterleavedHardwareEntries(t *testing.T) {
	hwAddr := testAddress(3)
	addrA := testAddress(1)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})
	store.Put(&account.Account{
		Address: hwAddr,
		Ledger:  &account.LedgerDetail{DeviceID: "nano-x-01", AccountIndex: 0},
	})

	sig := bytes.Repeat([]byte{0xcc}, 64)
	transport := &fakeTransport{
		responses: [][]byte{okResponse(sig), okResponse(sig)},
	}

	local := &fakeSigner{}
	o := newTestOrchestrator(store, local, nil, transport)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: hwAddr, Raw: composedPayment(t, hwAddr)},
		{Index: 1, SignerAddress: addrA, Raw: []byte("tx1")},
		{Index: 2, SignerAddress: hwAddr, Raw: composedPayment(t, hwAddr)},
	})

	signed, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	require.Len(t, signed, 3)
	assert.NotNil(t, signed[0])
	assert.Equal(t, []byte("signed:tx1"), signed[1])
	assert.NotNil(t, signed[2])

	// The device entries share one operation even with another backend's
	// entry between them: a single scan.
	assert.Equal(t, 1, transport.scans)
	assert.Equal(t, []string{addrA}, local.calls)
}

func TestSignSessionFailsWhenHDBackendMissing(t *testing.T) {
	hdAddr := testAddress(4)

	store := account.NewMemoryStore()
	store.Put(&account.Account{
		Address:  hdAddr,
		HDWallet: &account.HDWalletDetail{WalletID: "w1"},
	})

	// Wired the way the payment command does it: local keys only.
	o := signing.NewOrchestrator(store, &fakeSigner{}, nil, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: hdAddr, Raw: []byte("tx0")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrNoSigner))
}

func TestSignSessionFailsWhenHardwareBackendMissing(t *testing.T) {
	hwAddr := testAddress(3)

	store := account.NewMemoryStore()
	store.Put(&account.Account{
		Address: hwAddr,
		Ledger:  &account.LedgerDetail{DeviceID: "nano-x-01", AccountIndex: 0},
	})

	o := signing.NewOrchestrator(store, &fakeSigner{}, nil, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: hwAddr, Raw: composedPayment(t, hwAddr)},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, signing.ErrNoSigner))
}

func TestSignSessionRecordsMetrics(t *testing.T) {
	addrA := testAddress(1)
	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: addrA})

	reg := prometheus.NewRegistry()
	o := signing.NewOrchestrator(store, &fakeSigner{}, nil, nil, signing.NewMetrics(reg))

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: addrA, Raw: []byte("tx0")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	// One signature series, one session series, one duration histogram.
	count, err := testutil.GatherAndCount(reg,
		"signing_signatures_total",
		"signing_sessions_total",
		"signing_session_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSignSessionRekeyedSenderUsesAuthorityBackend(t *testing.T) {
	senderAddr := testAddress(1)
	authAddr := testAddress(2)

	store := account.NewMemoryStore()
	store.Put(&account.Account{Address: senderAddr, AuthAddress: authAddr})
	store.Put(&account.Account{Address: authAddr})

	local := &fakeSigner{}
	o := newTestOrchestrator(store, local, nil, nil)

	session := signing.NewSession([]signing.Entry{
		{Index: 0, SignerAddress: senderAddr, Raw: []byte("tx0")},
	})

	_, err := o.SignSession(context.Background(), session, signing.Options{})
	require.NoError(t, err)

	// The authorizing account's key signs for the rekeyed sender.
	assert.Equal(t, []string{authAddr}, local.calls)
}

func composedPayment(t *testing.T, sender string) []byte {
	t.Helper()

	senderAddr, err := txn.ParseAddress(sender)
	require.NoError(t, err)

	var receiver txn.Address
	receiver[0] = 0x42

	composed, err := txn.Compose(txn.Draft{
		Kind:     txn.KindPayment,
		Sender:   senderAddr,
		Receiver: receiver,
		Amount:   1000,
	}, txn.Params{
		MinFee:      1000,
		FirstValid:  1,
		LastValid:   1000,
		GenesisHash: bytes.Repeat([]byte{0xab}, 32),
	})
	require.NoError(t, err)

	return composed.Raw
}

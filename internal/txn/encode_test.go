package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github/meridian/algo-wallet/internal/txn"
)

// envelope mirrors the signed transaction wire form for assertions.
type envelope struct {
	Msig map[string]any     `msgpack:"msig"`
	Sgnr []byte             `msgpack:"sgnr"`
	Sig  []byte             `msgpack:"sig"`
	Txn  msgpack.RawMessage `msgpack:"txn"`
}

func TestBytesToSignPrefixesDomain(t *testing.T) {
	raw := []byte{0x81, 0xa3, 0x66, 0x65, 0x65}

	toSign := txn.BytesToSign(raw)
	assert.Equal(t, []byte("TX"), toSign[:2])
	assert.Equal(t, raw, toSign[2:])

	// The input is not aliased.
	toSign[2] = 0xff
	assert.Equal(t, byte(0x81), raw[0])
}

func TestEncodeSignedOmitsSignerForPlainAccounts(t *testing.T) {
	sender := testAddress(1)
	sig := make([]byte, 64)

	composed := composeTestPayment(t, sender)

	out, err := txn.EncodeSigned(composed, sig, sender, sender)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, msgpack.Unmarshal(out, &env))
	assert.Equal(t, sig, env.Sig)
	assert.Nil(t, env.Sgnr)
	assert.Equal(t, composed, []byte(env.Txn))
}

func TestEncodeSignedRecordsAuthorizingAddress(t *testing.T) {
	sender := testAddress(1)
	authority := testAddress(9)
	sig := make([]byte, 64)

	composed := composeTestPayment(t, sender)

	out, err := txn.EncodeSigned(composed, sig, sender, authority)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, msgpack.Unmarshal(out, &env))
	assert.Equal(t, authority[:], env.Sgnr)
}

func TestEncodeMultisigSigned(t *testing.T) {
	sender := testAddress(1)
	composed := composeTestPayment(t, sender)

	keyA := testAddress(1)
	keyB := testAddress(2)
	msig := &txn.MultisigSig{
		Subsigs: []txn.MultisigSubsig{
			{Key: keyA[:], Sig: make([]byte, 64)},
			{Key: keyB[:]},
		},
		Threshold: 1,
		Version:   1,
	}

	out, err := txn.EncodeMultisigSigned(composed, msig)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, msgpack.Unmarshal(out, &env))
	assert.Nil(t, env.Sig)
	assert.NotNil(t, env.Msig)
	assert.Equal(t, composed, []byte(env.Txn))
}

func composeTestPayment(t *testing.T, sender txn.Address) []byte {
	t.Helper()

	composed, err := txn.Compose(txn.Draft{
		Kind:     txn.KindPayment,
		Sender:   sender,
		Receiver: testAddress(2),
		Amount:   1000,
	}, testParams())
	require.NoError(t, err)

	return composed.Raw
}

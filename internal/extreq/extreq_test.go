package extreq_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/meridian/algo-wallet/internal/extreq"
	"github/meridian/algo-wallet/internal/txn"
)

func testAddress(seed byte) txn.Address {
	var a txn.Address
	for i := range a {
		a[i] = seed
	}

	return a
}

func encodedPayment(t *testing.T, sender txn.Address) string {
	t.Helper()

	composed, err := txn.Compose(txn.Draft{
		Kind:     txn.KindPayment,
		Sender:   sender,
		Receiver: testAddress(0x42),
		Amount:   1000,
	}, txn.Params{
		MinFee:      1000,
		FirstValid:  1,
		LastValid:   1000,
		GenesisHash: bytes.Repeat([]byte{0xab}, 32),
	})
	require.NoError(t, err)

	return base64.StdEncoding.EncodeToString(composed.Raw)
}

func TestParse(t *testing.T) {
	payload := []byte(fmt.Sprintf(`[{"txn":%q}]`, encodedPayment(t, testAddress(1))))

	reqs, err := extreq.Parse(payload)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].Signers)
}

func TestParseRejectsBadPayloads(t *testing.T) {
	_, err := extreq.Parse([]byte(`not json`))
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))

	_, err = extreq.Parse([]byte(`[]`))
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))

	oversized := make([]json.RawMessage, 17)
	for i := range oversized {
		oversized[i] = json.RawMessage(`{"txn":"AA=="}`)
	}
	payload, err := json.Marshal(oversized)
	require.NoError(t, err)
	_, err = extreq.Parse(payload)
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))
}

func TestBuildSessionDefaultsToSender(t *testing.T) {
	sender := testAddress(1)
	reqs := []extreq.TxnRequest{{Txn: encodedPayment(t, sender)}}

	session, err := extreq.BuildSession(reqs)
	require.NoError(t, err)
	require.Len(t, session.Entries, 1)
	assert.Equal(t, sender.String(), session.Entries[0].SignerAddress)
	assert.Equal(t, 0, session.Entries[0].Index)
}

func TestBuildSessionEmptySignersIsPlaceholder(t *testing.T) {
	reqs := []extreq.TxnRequest{{
		Txn:     encodedPayment(t, testAddress(1)),
		Signers: []string{},
	}}

	session, err := extreq.BuildSession(reqs)
	require.NoError(t, err)
	assert.Empty(t, session.Entries[0].SignerAddress)
}

func TestBuildSessionExplicitSignerWins(t *testing.T) {
	delegate := testAddress(7).String()
	reqs := []extreq.TxnRequest{{
		Txn:     encodedPayment(t, testAddress(1)),
		Signers: []string{delegate},
	}}

	session, err := extreq.BuildSession(reqs)
	require.NoError(t, err)
	assert.Equal(t, delegate, session.Entries[0].SignerAddress)
}

func TestBuildSessionAuthAddrHint(t *testing.T) {
	authority := testAddress(9).String()
	reqs := []extreq.TxnRequest{{
		Txn:      encodedPayment(t, testAddress(1)),
		AuthAddr: authority,
	}}

	session, err := extreq.BuildSession(reqs)
	require.NoError(t, err)
	assert.Equal(t, authority, session.Entries[0].SignerAddress)
}

func TestBuildSessionRejectsMultipleSigners(t *testing.T) {
	reqs := []extreq.TxnRequest{{
		Txn:     encodedPayment(t, testAddress(1)),
		Signers: []string{testAddress(1).String(), testAddress(2).String()},
	}}

	_, err := extreq.BuildSession(reqs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))
}

func TestBuildSessionRejectsBadBase64(t *testing.T) {
	_, err := extreq.BuildSession([]extreq.TxnRequest{{Txn: "!!!"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))
}

func TestBuildSessionRejectsInvalidSignerAddress(t *testing.T) {
	_, err := extreq.BuildSession([]extreq.TxnRequest{{
		Txn:     encodedPayment(t, testAddress(1)),
		Signers: []string{"not an address"},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, extreq.ErrUnsignableRequest))
}

func TestEncodeResult(t *testing.T) {
	signed := [][]byte{
		[]byte("envelope-a"),
		nil,
		[]byte("envelope-b"),
	}

	out, err := extreq.EncodeResult(signed)
	require.NoError(t, err)

	var decoded []*string
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 3)
	require.NotNil(t, decoded[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("envelope-a")), *decoded[0])
	assert.Nil(t, decoded[1])
	require.NotNil(t, decoded[2])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("envelope-b")), *decoded[2])
}

package ledger

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// APDU constants of the device signing app.
const (
	claLedger      = 0x80
	insSignMsgpack = 0x08

	p1FirstChunk = 0x00
	p1MoreChunk  = 0x80
	p2LastChunk  = 0x00
	p2MoreChunk  = 0x80

	// maxChunkPayload is the payload capacity of one APDU.
	maxChunkPayload = 250
)

// Device status words, trailing every response.
const (
	statusWordOK       = 0x9000
	statusWordRejected = 0x6985
	// The signing app was closed on the device (or was never open).
	statusWordAppClosed   = 0x6e00
	statusWordAppNotFound = 0x6d00
)

// signChunks frames an unsigned transaction as a chunked sign instruction.
// The first chunk is prefixed with the big-endian account index selecting
// the key slot on the device.
func signChunks(accountIndex uint32, raw []byte) [][]byte {
	payload := make([]byte, 0, 4+len(raw))
	payload = binary.BigEndian.AppendUint32(payload, accountIndex)
	payload = append(payload, raw...)

	var chunks [][]byte
	for offset := 0; offset < len(payload); offset += maxChunkPayload {
		end := offset + maxChunkPayload
		if end > len(payload) {
			end = len(payload)
		}
		data := payload[offset:end]

		p1 := byte(p1MoreChunk)
		if offset == 0 {
			p1 = p1FirstChunk
		}
		p2 := byte(p2MoreChunk)
		if end == len(payload) {
			p2 = p2LastChunk
		}

		apdu := make([]byte, 0, 5+len(data))
		apdu = append(apdu, claLedger, insSignMsgpack, p1, p2, byte(len(data)))
		apdu = append(apdu, data...)

		chunks = append(chunks, apdu)
	}

	return chunks
}

// parseResponse splits a device response into payload and status word, and
// maps failure status words to the operation error taxonomy.
func parseResponse(resp []byte) ([]byte, error) {
	if len(resp) < 2 {
		return nil, errors.Wrapf(ErrFailedToSign, "response too short (%d bytes)", len(resp))
	}

	payload := resp[:len(resp)-2]
	statusWord := binary.BigEndian.Uint16(resp[len(resp)-2:])

	switch statusWord {
	case statusWordOK:
		return payload, nil
	case statusWordRejected:
		return nil, errors.WithStack(ErrRejected)
	case statusWordAppClosed, statusWordAppNotFound:
		return nil, errors.WithStack(ErrConnectionClosed)
	default:
		return nil, errors.Wrapf(ErrFailedToSign, "status word 0x%04x", statusWord)
	}
}

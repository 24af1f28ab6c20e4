package txn

// Params is an immutable snapshot of the network parameters required to
// compose a transaction. It is fetched once per composition and must not be
// reused across a long gap: the validity window expires with the rounds it
// references.
type Params struct {
	// FeePerByte is the suggested fee in microAlgos per encoded byte. A
	// congestion-free network suggests 0, in which case MinFee applies.
	FeePerByte uint64
	// MinFee is the protocol minimum flat fee in microAlgos.
	MinFee uint64
	// FirstValid and LastValid bound the round window of the transaction.
	FirstValid uint64
	LastValid  uint64
	// GenesisID and GenesisHash pin the transaction to one network.
	GenesisID   string
	GenesisHash []byte
}

package txn

const (
	// minBalancePerAccount is the microAlgo floor every account must keep.
	minBalancePerAccount = 100_000
	// minBalancePerAsset is the additional floor per opted-in asset.
	minBalancePerAsset = 100_000

	// SignedTxnOverhead approximates the bytes the signed envelope adds on
	// top of the unsigned encoding: a 64-byte signature plus msgpack
	// framing. Fees are charged on the signed size.
	SignedTxnOverhead = 75
)

// ProjectedFee returns the fee implied by a signed encoding of the given
// size, never below the protocol minimum.
func ProjectedFee(p Params, size int) uint64 {
	fee := p.FeePerByte * uint64(size)
	if fee < p.MinFee {
		return p.MinFee
	}

	return fee
}

// MinBalance returns the minimum balance requirement of an account holding
// the given number of assets.
func MinBalance(heldAssets int) uint64 {
	return minBalancePerAccount + minBalancePerAsset*uint64(heldAssets)
}

package dex

// FeeSplit is the division of one trade's cost between the seller, the
// building owner and the burn. Both fee components round down, the seller
// keeps the remainder, so Seller + Owner + Burned == cost always.
type FeeSplit struct {
	Seller int64
	Owner  int64
	Burned int64
}

// feeOf computes floor(cost * bps / 10_000) without overflowing on large
// costs.
func feeOf(cost, bps int64) int64 {
	return (cost/10_000)*bps + (cost%10_000)*bps/10_000
}

// SplitCost divides a trade's cost. ownerBps is the building owner's cut,
// baseBps the exchange base fee, which is always burned. For ownerless
// (ancient) buildings the owner's cut is burned as well. The combined fee
// is capped at the cost, so the seller's share never goes negative even
// when ownerBps+baseBps exceeds 10000.
func SplitCost(cost, ownerBps, baseBps int64, ownerless bool) FeeSplit {
	ownerFee := feeOf(cost, ownerBps)
	baseFee := feeOf(cost, baseBps)
	if ownerFee+baseFee > cost {
		baseFee = cost - ownerFee
	}
	split := FeeSplit{
		Seller: cost - ownerFee - baseFee,
		Owner:  ownerFee,
		Burned: baseFee,
	}
	if ownerless {
		split.Burned += split.Owner
		split.Owner = 0
	}
	return split
}

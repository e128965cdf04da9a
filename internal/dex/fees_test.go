package dex_test

import (
	"testing"

	"BuildingDex/internal/dex"
)

func TestSplitCost(t *testing.T) {
	cases := []struct {
		name      string
		cost      int64
		ownerBps  int64
		baseBps   int64
		ownerless bool
		want      dex.FeeSplit
	}{
		{
			name: "no fees", cost: 100,
			want: dex.FeeSplit{Seller: 100},
		},
		{
			name: "owner and base", cost: 100, ownerBps: 2_000, baseBps: 1_000,
			want: dex.FeeSplit{Seller: 70, Owner: 20, Burned: 10},
		},
		{
			name: "fees round down, seller keeps the dust", cost: 9, ownerBps: 1_000, baseBps: 1_000,
			want: dex.FeeSplit{Seller: 9},
		},
		{
			name: "one coin of fee", cost: 19, ownerBps: 1_000, baseBps: 500,
			want: dex.FeeSplit{Seller: 18, Owner: 1, Burned: 0},
		},
		{
			name: "zero cost", cost: 0, ownerBps: 5_000, baseBps: 1_000,
			want: dex.FeeSplit{},
		},
		{
			name: "ancient building burns the owner cut", cost: 100, ownerBps: 2_000, baseBps: 1_000, ownerless: true,
			want: dex.FeeSplit{Seller: 70, Owner: 0, Burned: 30},
		},
		{
			name: "large cost does not overflow", cost: 90_000_000_000_000_000, ownerBps: 9_999, baseBps: 0,
			want: dex.FeeSplit{Seller: 9_000_000_000_000, Owner: 89_991_000_000_000_000, Burned: 0},
		},
		{
			name: "combined fee above 100% is capped at the cost", cost: 100, ownerBps: 9_999, baseBps: 9_999,
			want: dex.FeeSplit{Seller: 0, Owner: 99, Burned: 1},
		},
		{
			name: "cap applies to the ancient burn too", cost: 100, ownerBps: 9_999, baseBps: 9_999, ownerless: true,
			want: dex.FeeSplit{Seller: 0, Owner: 0, Burned: 100},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := dex.SplitCost(tc.cost, tc.ownerBps, tc.baseBps, tc.ownerless)
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
			if got.Seller+got.Owner+got.Burned != tc.cost {
				t.Errorf("split does not sum to cost: %+v", got)
			}
		})
	}
}

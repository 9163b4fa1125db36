package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exp = time.Date(2026, 4, 17, 0, 0, 0, 0, time.UTC)

func leg(side OrderSide, typ OptionType, strike float64) OptionLeg {
	return OptionLeg{Symbol: "SPY", Side: side, OptionType: typ, Strike: strike, Expiration: exp}
}

func condorLegs() []OptionLeg {
	return []OptionLeg{
		leg(SideSell, OptionCall, 530),
		leg(SideBuy, OptionCall, 540),
		leg(SideSell, OptionPut, 470),
		leg(SideBuy, OptionPut, 460),
	}
}

func TestValidatePairing(t *testing.T) {
	tests := []struct {
		name    string
		legs    []OptionLeg
		wantErr bool
	}{
		{
			name: "full condor passes",
			legs: condorLegs(),
		},
		{
			name: "put credit spread passes",
			legs: []OptionLeg{
				leg(SideSell, OptionPut, 470),
				leg(SideBuy, OptionPut, 460),
			},
		},
		{
			name:    "no legs fails",
			legs:    nil,
			wantErr: true,
		},
		{
			name: "naked short call fails",
			legs: []OptionLeg{
				leg(SideSell, OptionCall, 530),
			},
			wantErr: true,
		},
		{
			name: "long call below short strike is not protection",
			legs: []OptionLeg{
				leg(SideSell, OptionCall, 530),
				leg(SideBuy, OptionCall, 520),
			},
			wantErr: true,
		},
		{
			name: "long put above short strike is not protection",
			legs: []OptionLeg{
				leg(SideSell, OptionPut, 470),
				leg(SideBuy, OptionPut, 480),
			},
			wantErr: true,
		},
		{
			name: "wrong type does not protect",
			legs: []OptionLeg{
				leg(SideSell, OptionCall, 530),
				leg(SideBuy, OptionPut, 540),
			},
			wantErr: true,
		},
		{
			name: "different expiration does not protect",
			legs: func() []OptionLeg {
				long := leg(SideBuy, OptionCall, 540)
				long.Expiration = exp.AddDate(0, 1, 0)
				return []OptionLeg{leg(SideSell, OptionCall, 530), long}
			}(),
			wantErr: true,
		},
		{
			name: "long-only structure passes trivially",
			legs: []OptionLeg{
				leg(SideBuy, OptionCall, 540),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &SpreadOrder{Symbol: "SPY", Legs: tt.legs}
			err := o.ValidatePairing()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShortAndLongLegs(t *testing.T) {
	o := &SpreadOrder{Legs: condorLegs()}
	require.Len(t, o.ShortLegs(), 2)
	require.Len(t, o.LongLegs(), 2)
	for _, l := range o.ShortLegs() {
		assert.Equal(t, SideSell, l.Side)
	}
}

func TestCollateral(t *testing.T) {
	o := &SpreadOrder{MaxLoss: 840, Quantity: 3}
	assert.Equal(t, 2520.0, o.Collateral())

	// Zero quantity is treated as one contract.
	o.Quantity = 0
	assert.Equal(t, 840.0, o.Collateral())
}

func TestDTE(t *testing.T) {
	now := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	o := &SpreadOrder{Legs: condorLegs()}
	assert.Equal(t, 35, o.DTE(now))

	// Nearest leg wins when expirations differ.
	legs := condorLegs()
	legs[0].Expiration = exp.AddDate(0, 0, -5)
	o = &SpreadOrder{Legs: legs}
	assert.Equal(t, 30, o.DTE(now))

	assert.Equal(t, 0, (&SpreadOrder{}).DTE(now))
}

func TestOrderStatusIsPending(t *testing.T) {
	assert.True(t, StatusNew.IsPending())
	assert.True(t, StatusAccepted.IsPending())
	assert.True(t, StatusPartiallyFilled.IsPending())
	assert.False(t, StatusFilled.IsPending())
	assert.False(t, StatusCancelled.IsPending())
	assert.False(t, StatusRejected.IsPending())
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgerEntries() []InventoryLogEntry {
	rec := NewStockRecord("p-1", "SKU-1", 0)
	var out []InventoryLogEntry

	rec.Add(10)
	out = append(out, *NewInventoryLogEntry(rec, ChangeInitialStock, 10, ""))
	rec.Reserve(4)
	out = append(out, *NewInventoryLogEntry(rec, ChangeReserved, 4, ""))
	rec.Deduct(4)
	out = append(out, *NewInventoryLogEntry(rec, ChangePurchase, -4, ""))
	rec.Add(2)
	out = append(out, *NewInventoryLogEntry(rec, ChangeReturn, 2, ""))
	return out
}

func TestReplayOnHand_Consistent(t *testing.T) {
	report := ReplayOnHand("p-1", ledgerEntries(), 8)

	assert.True(t, report.Consistent)
	assert.Equal(t, 4, report.Entries)
	assert.Equal(t, 8, report.ReplayedOnHand)
	assert.Nil(t, report.BrokenChainAt)
}

func TestReplayOnHand_RecordDrift(t *testing.T) {
	report := ReplayOnHand("p-1", ledgerEntries(), 9)

	assert.False(t, report.Consistent)
	assert.Nil(t, report.BrokenChainAt)
	assert.Equal(t, 8, report.LastEntryOnHand)
}

func TestReplayOnHand_BrokenChain(t *testing.T) {
	entries := ledgerEntries()
	entries[2].ResultingOnHand = 100

	report := ReplayOnHand("p-1", entries, 8)

	require.NotNil(t, report.BrokenChainAt)
	assert.Equal(t, entries[2].ID, *report.BrokenChainAt)
	assert.False(t, report.Consistent)
}

func TestChangeType_AffectsOnHand(t *testing.T) {
	assert.False(t, ChangeReserved.AffectsOnHand())
	assert.False(t, ChangeReleaseReservation.AffectsOnHand())
	assert.True(t, ChangePurchase.AffectsOnHand())
	assert.True(t, ChangeDamaged.AffectsOnHand())
	assert.False(t, ChangeType("BOGUS").Valid())
}

func TestReferenceKey_Validate(t *testing.T) {
	assert.NoError(t, ReferenceKey{"p", "c-1", ReferenceCart}.Validate())
	assert.ErrorIs(t, ReferenceKey{"", "c-1", ReferenceCart}.Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, ReferenceKey{"p", "", ReferenceOrder}.Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, ReferenceKey{"p", "c-1", "wishlist"}.Validate(), ErrInvalidQuantity)
}

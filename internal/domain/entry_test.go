package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntryValidate(t *testing.T) {
	t.Parallel()

	ok := Entry{
		Type:          EntryDeposit,
		Amount:        dec("200"),
		BalanceBefore: dec("0"),
		BalanceAfter:  dec("200"),
	}
	require.NoError(t, ok.Validate())

	broken := ok
	broken.BalanceAfter = dec("199.99999999")
	require.ErrorIs(t, broken.Validate(), ErrInvalidEntry)

	zero := ok
	zero.Amount = dec("0")
	zero.BalanceAfter = zero.BalanceBefore
	require.ErrorIs(t, zero.Validate(), ErrInvalidEntry)

	unknown := ok
	unknown.Type = "jackpot"
	require.ErrorIs(t, unknown.Validate(), ErrInvalidEntryType)
}

func TestMetadataValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Metadata(nil).Validate())
	require.NoError(t, Metadata{"game": "scratch", "round": "42"}.Validate())

	tooMany := Metadata{}
	for i := 0; i <= MaxMetadataKeys; i++ {
		tooMany[strings.Repeat("k", i+1)] = "v"
	}
	require.ErrorIs(t, tooMany.Validate(), ErrMetadataTooLarge)

	longValue := Metadata{"note": strings.Repeat("v", MaxMetadataValueLen+1)}
	require.ErrorIs(t, longValue.Validate(), ErrMetadataTooLarge)

	emptyKey := Metadata{"": "v"}
	require.ErrorIs(t, emptyKey.Validate(), ErrMetadataTooLarge)
}

func TestMetadataScanValue(t *testing.T) {
	t.Parallel()

	v, err := Metadata(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte("{}"), v)

	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"updated_by":"system"}`)))
	require.Equal(t, Metadata{"updated_by": "system"}, m)

	require.NoError(t, m.Scan(nil))
	require.Empty(t, m)

	require.Error(t, m.Scan(42))
}

func TestListEntriesParams(t *testing.T) {
	t.Parallel()

	p := ListEntriesParams{}.Normalize()
	require.Equal(t, int32(1), p.Page)
	require.Equal(t, int32(DefaultPageLimit), p.Limit)
	require.Equal(t, int64(0), p.Offset())

	p = ListEntriesParams{Page: 3, Limit: 1000}.Normalize()
	require.Equal(t, int32(MaxPageLimit), p.Limit)
	require.Equal(t, int64(200), p.Offset())

	p = ListEntriesParams{Page: 30000000, Limit: 100}.Normalize()
	require.Equal(t, int64(2999999900), p.Offset())

	p = ListEntriesParams{Page: math.MaxInt32, Limit: 1000}.Normalize()
	require.Equal(t, int64(math.MaxInt32-1)*MaxPageLimit, p.Offset())
	require.Positive(t, p.Offset())

	page := NewEntryPage(nil, ListEntriesParams{Page: 1, Limit: 10}, 25)
	require.Equal(t, int64(3), page.Pages)

	page = NewEntryPage(nil, ListEntriesParams{Page: 1, Limit: 10}, 0)
	require.Equal(t, int64(0), page.Pages)
}

func TestIsBusinessError(t *testing.T) {
	t.Parallel()

	require.True(t, IsBusinessError(ErrInsufficientFunds))
	require.True(t, IsBusinessError(ErrAccountInactive))
	require.False(t, IsBusinessError(nil))
	require.False(t, IsBusinessError(ErrReconciliationMismatch))
}

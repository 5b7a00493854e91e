package accounting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

func testChart(t *testing.T) *Chart {
	t.Helper()
	chart, err := NewChart([]Account{
		{ID: 1, Code: "1000", Type: AccountTypeAsset},
		{ID: 2, Code: "1100", Type: AccountTypeAsset, ParentID: id(1)},
		{ID: 3, Code: "1110", Type: AccountTypeAsset, ParentID: id(2)},
		{ID: 4, Code: "1050", Type: AccountTypeAsset, ParentID: id(1)},
		{ID: 5, Code: "2000", Type: AccountTypeLiability},
	})
	require.NoError(t, err)
	return chart
}

func codes(accounts []Account) []string {
	out := make([]string, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.Code)
	}
	return out
}

func TestChartNavigation(t *testing.T) {
	chart := testChart(t)
	assert.Equal(t, []string{"1050", "1100"}, codes(chart.Children(1)))
	assert.Equal(t, []string{"1100", "1000"}, codes(chart.Ancestors(3)))
	assert.Empty(t, chart.Ancestors(5))
}

func TestNewChartRejectsCycleAndUnknownParent(t *testing.T) {
	_, err := NewChart([]Account{
		{ID: 1, Code: "A", ParentID: id(2)},
		{ID: 2, Code: "B", ParentID: id(1)},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewChart([]Account{{ID: 1, Code: "A", ParentID: id(99)}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestChartSetParent(t *testing.T) {
	chart := testChart(t)

	require.NoError(t, chart.SetParent(5, id(1)))
	acc, _ := chart.Get(5)
	require.NotNil(t, acc.ParentID)
	assert.Equal(t, int64(1), *acc.ParentID)

	require.ErrorIs(t, chart.SetParent(1, id(3)), ErrValidation, "ancestor under its descendant")
	require.ErrorIs(t, chart.SetParent(2, id(2)), ErrValidation, "own parent")
	require.ErrorIs(t, chart.SetParent(2, id(42)), ErrNotFound)
	require.ErrorIs(t, chart.SetParent(42, nil), ErrNotFound)

	require.NoError(t, chart.SetParent(2, nil))
	acc, _ = chart.Get(2)
	assert.Nil(t, acc.ParentID)
	assert.Equal(t, []string{"1100"}, codes(chart.Ancestors(3)))
}

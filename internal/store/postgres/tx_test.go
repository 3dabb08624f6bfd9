package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementQuery_SingleDessert(t *testing.T) {
	query, args := decrementQuery("2026-08-28", map[int64]int{1: 2})

	assert.Contains(t, query, "WHEN $2::bigint THEN $3::integer")
	assert.Contains(t, query, "dessert_id = ANY($4)")
	assert.Contains(t, query, "RETURNING dessert_id, quantity")

	require.Len(t, args, 4)
	assert.Equal(t, "2026-08-28", args[0])
	assert.Equal(t, int64(1), args[1])
	assert.Equal(t, 2, args[2])
	assert.Equal(t, []int64{1}, args[3])
}

func TestDecrementQuery_DeterministicOrder(t *testing.T) {
	// Map iteration order must not leak into the SQL: ids come out sorted.
	demand := map[int64]int{5: 1, 2: 3, 9: 2}
	query, args := decrementQuery("2026-08-28", demand)

	require.Len(t, args, 8)
	assert.Equal(t, []interface{}{"2026-08-28", int64(2), 3, int64(5), 1, int64(9), 2, []int64{2, 5, 9}}, args)

	assert.Equal(t, 3, strings.Count(query, "WHEN $"))
	assert.Contains(t, query, "dessert_id = ANY($8)")

	// Re-building from the same map yields the identical statement.
	again, _ := decrementQuery("2026-08-28", demand)
	assert.Equal(t, query, again)
}

func TestDecrementQuery_IsSingleStatement(t *testing.T) {
	query, _ := decrementQuery("2026-08-28", map[int64]int{1: 1, 2: 2})
	assert.Equal(t, 1, strings.Count(query, "UPDATE stock_ledger"))
	assert.NotContains(t, query, ";")
}

package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/coaching-api/internal/domain/entity"
)

func at(day int, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

func TestDeduplicate_EarliestStartWins(t *testing.T) {
	// Arrange: пересдачи перемешаны, ранняя не первая во входе
	attempts := []entity.Attempt{
		{ID: 3, UserID: 1, TestID: 10, Score: 90, StartedAt: at(3, 12)},
		{ID: 1, UserID: 1, TestID: 10, Score: 40, StartedAt: at(1, 12)},
		{ID: 2, UserID: 1, TestID: 10, Score: 70, StartedAt: at(2, 12)},
	}

	// Act
	canonical := Deduplicate(attempts)

	// Assert: остается самая ранняя, даже с худшим баллом
	require.Len(t, canonical, 1)
	assert.Equal(t, uint(1), canonical[0].ID, "Канонической должна стать попытка с наименьшим startedAt")
	assert.Equal(t, 40.0, canonical[0].Score)
}

func TestDeduplicate_SeparatePairsUntouched(t *testing.T) {
	// Arrange: разные пары (user, test) не схлопываются между собой
	attempts := []entity.Attempt{
		{ID: 1, UserID: 1, TestID: 10, StartedAt: at(1, 9)},
		{ID: 2, UserID: 2, TestID: 10, StartedAt: at(1, 10)},
		{ID: 3, UserID: 1, TestID: 20, StartedAt: at(1, 11)},
	}

	// Act
	canonical := Deduplicate(attempts)

	// Assert
	assert.Len(t, canonical, 3, "Попытки разных пар не дедуплицируются")
}

func TestDeduplicate_TieKeepsFirstEncountered(t *testing.T) {
	// Arrange: одинаковый startedAt
	same := at(5, 8)
	attempts := []entity.Attempt{
		{ID: 7, UserID: 1, TestID: 10, StartedAt: same},
		{ID: 8, UserID: 1, TestID: 10, StartedAt: same},
	}

	// Act
	canonical := Deduplicate(attempts)

	// Assert: при равенстве остается первая встреченная
	require.Len(t, canonical, 1)
	assert.Equal(t, uint(7), canonical[0].ID)
}

func TestDeduplicate_PreservesFirstAppearanceOrder(t *testing.T) {
	// Arrange
	attempts := []entity.Attempt{
		{ID: 1, UserID: 2, TestID: 10, StartedAt: at(3, 9)},
		{ID: 2, UserID: 1, TestID: 10, StartedAt: at(1, 9)},
		{ID: 3, UserID: 2, TestID: 10, StartedAt: at(2, 9)}, // ранняя пересдача user=2
	}

	// Act
	canonical := Deduplicate(attempts)

	// Assert: порядок соответствует первому появлению пары во входе
	require.Len(t, canonical, 2)
	assert.Equal(t, uint(2), canonical[0].UserID)
	assert.Equal(t, uint(3), canonical[0].ID, "Слот пары обновился более ранней попыткой")
	assert.Equal(t, uint(1), canonical[1].UserID)
}

func TestDeduplicate_Empty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
	assert.Empty(t, Deduplicate([]entity.Attempt{}))
}

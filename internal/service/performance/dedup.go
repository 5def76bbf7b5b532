package performance

import (
	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// Deduplicate сводит произвольный набор попыток к каноническим:
// внутри каждой пары (user, test) остается попытка с наименьшим startedAt.
// Это единственное правило "сколько тестов студент реально прошел",
// и все агрегаторы (аналитика, лидерборд, ранги, достижения) обязаны
// звать именно его, а не переизобретать группировку.
//
// При равенстве startedAt остается первая встреченная во входном порядке.
// Относительный порядок канонических попыток соответствует порядку их
// первого появления во входе.
func Deduplicate(attempts []entity.Attempt) []entity.Attempt {
	type pairKey struct {
		userID uint
		testID uint
	}

	slot := make(map[pairKey]int, len(attempts))
	result := make([]entity.Attempt, 0, len(attempts))

	for i := range attempts {
		key := pairKey{userID: attempts[i].UserID, testID: attempts[i].TestID}
		pos, seen := slot[key]
		if !seen {
			slot[key] = len(result)
			result = append(result, attempts[i])
			continue
		}
		// Строгое "раньше": при равных startedAt каноническая не меняется
		if attempts[i].StartedAt.Before(result[pos].StartedAt) {
			result[pos] = attempts[i]
		}
	}

	return result
}

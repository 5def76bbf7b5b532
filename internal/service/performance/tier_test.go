package performance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignTier_Boundaries(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		accuracy  float64
		inTop10   bool
		wantLevel int
		wantLabel string
	}{
		{"Без попыток", 0, 0, false, 0, "Newcomer"},
		{"Одна попытка с нулевой точностью", 1, 0, false, 1, "Rising Star"},
		{"Шесть попыток, ровно 50% - порог строгий", 6, 50, false, 1, "Rising Star"},
		{"Шесть попыток, 51%", 6, 51, false, 2, "Quick Learner"},
		{"Пять попыток, 99% - не хватает попыток", 5, 99, false, 1, "Rising Star"},
		{"16 попыток, 61%", 16, 61, false, 3, "Consistent Performer"},
		{"31 попытка, 71%", 31, 71, false, 4, "Test Champion"},
		{"51 попытка, 81%", 51, 81, false, 5, "Subject Master"},
		{"100 попыток, 86%, вне топ-10", 100, 86, false, 5, "Subject Master"},
		{"100 попыток, 86%, в топ-10", 100, 86, true, 6, "Legend"},
		{"100 попыток, ровно 85%, в топ-10", 100, 85, true, 5, "Subject Master"},
		{"В топ-10 без объема - топ не понижает требования", 3, 90, true, 1, "Rising Star"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tier := AssignTier(tc.attempts, tc.accuracy, tc.inTop10)
			assert.Equal(t, tc.wantLevel, tier.Level)
			assert.Equal(t, tc.wantLabel, tier.Label)
		})
	}
}

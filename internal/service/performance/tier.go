package performance

// Tier представляет геймификационный уровень пользователя.
// Уровень не хранится: он чистая функция от числа завершенных попыток,
// средней точности и членства в глобальном топ-10 по сумме баллов.
type Tier struct {
	Level int    `json:"level"`
	Label string `json:"label"`
}

// Пороговая таблица уровней. Правила проверяются сверху вниз,
// срабатывает первое подходящее. Пороги точности строгие:
// ровно 50% не дает уровень "Quick Learner" и т.д.
var tierRules = []struct {
	minAttempts int
	minAccuracy float64 // строго больше
	needsTop10  bool
	tier        Tier
}{
	{100, 85, true, Tier{Level: 6, Label: "Legend"}},
	{51, 80, false, Tier{Level: 5, Label: "Subject Master"}},
	{31, 70, false, Tier{Level: 4, Label: "Test Champion"}},
	{16, 60, false, Tier{Level: 3, Label: "Consistent Performer"}},
	{6, 50, false, Tier{Level: 2, Label: "Quick Learner"}},
	{1, -1, false, Tier{Level: 1, Label: "Rising Star"}},
}

// AssignTier возвращает уровень для пользователя.
// attempts - число завершенных (канонических) попыток,
// avgAccuracy - средняя точность в процентах,
// inGlobalTop10 - членство в топ-10 глобального лидерборда организации.
// Топ-10 всегда глобальный, даже когда уровень показывается внутри
// лидерборда потока.
func AssignTier(attempts int, avgAccuracy float64, inGlobalTop10 bool) Tier {
	for _, rule := range tierRules {
		if attempts < rule.minAttempts {
			continue
		}
		if avgAccuracy <= rule.minAccuracy {
			continue
		}
		if rule.needsTop10 && !inGlobalTop10 {
			continue
		}
		return rule.tier
	}
	return Tier{Level: 0, Label: "Newcomer"}
}

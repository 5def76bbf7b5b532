package performance

import (
	"sort"
	"time"

	"github.com/yourusername/coaching-api/internal/domain/entity"
)

// Идентификаторы бейджей из фиксированного каталога
const (
	AchievementPerfectionist = "perfectionist"
	AchievementSpeedDemon    = "speed-demon"
	AchievementComebackKing  = "comeback-king"
	AchievementStreakMaster  = "streak-master"
)

// streakTarget - минимальная длина серии календарных дней для streak-master.
// Такая же величина служит предфильтром по числу канонических попыток.
const streakTarget = 7

// comebackThreshold - минимальный прирост точности (в процентных пунктах)
// между первой и последней попыткой одного теста
const comebackThreshold = 30.0

// Achievement представляет обнаруженный бейдж.
// Бейджи не хранятся и пересчитываются на каждый запрос, поэтому EarnedAt -
// это момент обнаружения, а не истинное первое вхождение.
type Achievement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

var achievementMeta = map[string][2]string{
	AchievementPerfectionist: {"Perfectionist", "Scored full marks on a test"},
	AchievementSpeedDemon:    {"Speed Demon", "Finished a test in under half the allotted time"},
	AchievementComebackKing:  {"Comeback King", "Improved accuracy by 30+ points on a retried test"},
	AchievementStreakMaster:  {"Streak Master", "Submitted tests on 7 consecutive days"},
}

func newAchievement(id string, now time.Time) Achievement {
	meta := achievementMeta[id]
	return Achievement{ID: id, Title: meta[0], Description: meta[1], EarnedAt: now}
}

// DetectAchievements сканирует историю попыток студента на предмет бейджей.
// На вход подаются сданные попытки с уже опубликованным ключом ответов
// (фильтрация - забота вызывающего), БЕЗ дедупликации: comeback-king
// единственный смотрит на сырые серии пересдач, остальные бейджи работают
// по каноническим попыткам.
func DetectAchievements(attempts []entity.Attempt, tests map[uint]*entity.Test, now time.Time) []Achievement {
	canonical := Deduplicate(attempts)

	achievements := make([]Achievement, 0, 4)

	if detectPerfectionist(canonical) {
		achievements = append(achievements, newAchievement(AchievementPerfectionist, now))
	}
	if detectSpeedDemon(canonical, tests) {
		achievements = append(achievements, newAchievement(AchievementSpeedDemon, now))
	}
	if detectComeback(attempts) {
		achievements = append(achievements, newAchievement(AchievementComebackKing, now))
	}
	if detectStreak(canonical) {
		achievements = append(achievements, newAchievement(AchievementStreakMaster, now))
	}

	return achievements
}

// detectPerfectionist ищет попытку со всеми правильными ответами.
// Первое вхождение завершает сканирование.
func detectPerfectionist(attempts []entity.Attempt) bool {
	for i := range attempts {
		total := attempts[i].TotalQuestionsSeen()
		if total > 0 && attempts[i].CorrectCount == total {
			return true
		}
	}
	return false
}

// detectSpeedDemon ищет попытку, сданную быстрее половины отведенного времени
func detectSpeedDemon(attempts []entity.Attempt, tests map[uint]*entity.Test) bool {
	for i := range attempts {
		test, ok := tests[attempts[i].TestID]
		if !ok || test.DurationMinutes <= 0 {
			continue
		}
		taken := attempts[i].TimeTaken()
		if taken <= 0 {
			continue
		}
		if taken < test.Duration()/2 {
			return true
		}
	}
	return false
}

// detectComeback группирует сырые попытки по тесту и сравнивает точность
// первой и последней пересдачи. Первый подходящий тест завершает сканирование.
func detectComeback(attempts []entity.Attempt) bool {
	byTest := make(map[uint][]entity.Attempt)
	for i := range attempts {
		byTest[attempts[i].TestID] = append(byTest[attempts[i].TestID], attempts[i])
	}

	for _, series := range byTest {
		if len(series) < 2 {
			continue
		}
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].StartedAt.Before(series[j].StartedAt)
		})
		first := series[0].Accuracy()
		last := series[len(series)-1].Accuracy()
		if last-first >= comebackThreshold {
			return true
		}
	}
	return false
}

// detectStreak вычисляет самую длинную серию последовательных календарных
// дней со сдачами. Даты берутся в локальном времени. Предфильтр: скан
// вообще не запускается, пока канонических попыток меньше семи.
func detectStreak(attempts []entity.Attempt) bool {
	if len(attempts) < streakTarget {
		return false
	}

	seen := make(map[string]time.Time, len(attempts))
	for i := range attempts {
		if attempts[i].SubmittedAt == nil {
			continue
		}
		t := *attempts[i].SubmittedAt
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		seen[day.Format("2006-01-02")] = day
	}

	days := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 0, 0
	for i := range days {
		// AddDate вместо 24h: перевод часов не должен рвать серию
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	return longest >= streakTarget
}

package entity

// ScoreBreakdown представляет результат зачета попытки
type ScoreBreakdown struct {
	Correct    int
	Incorrect  int
	Unanswered int
	Score      float64
}

// ScoreAttempt классифицирует ответы попытки по вопросам теста и считает балл.
// Итерация идет по актуальному списку вопросов теста (в порядке теста),
// а не по массиву ответов: ответы разрежены и их порядок ничего не значит.
// Формула: correct * (totalMarks / questionCount) - incorrect * negativeRate,
// с отсечкой снизу на нуле. Балл не округляется - округление остается
// заботой слоя представления.
func ScoreAttempt(test *Test, answers []AttemptAnswer) ScoreBreakdown {
	byQuestion := make(map[uint]*AttemptAnswer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	var breakdown ScoreBreakdown
	for i := range test.Questions {
		q := &test.Questions[i]
		ans, ok := byQuestion[q.ID]
		if !ok || !ans.IsAnswered() {
			breakdown.Unanswered++
			continue
		}
		if q.MatchesSelection(ans.SelectedOptions) {
			breakdown.Correct++
		} else {
			breakdown.Incorrect++
		}
	}

	score := float64(breakdown.Correct)*test.MarksPerQuestion() -
		float64(breakdown.Incorrect)*test.NegativeMarkingRate
	if score < 0 {
		score = 0
	}
	breakdown.Score = score

	return breakdown
}

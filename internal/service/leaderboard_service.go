package service

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/yourusername/coaching-api/internal/domain/entity"
	"github.com/yourusername/coaching-api/internal/domain/repository"
	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
	"github.com/yourusername/coaching-api/internal/service/performance"
)

// globalTopSize - размер глобального топа, членство в котором участвует
// в назначении уровня "Legend"
const globalTopSize = 10

// LeaderboardEntry представляет строку лидерборда.
// Строки не хранятся и пересчитываются на каждый запрос.
type LeaderboardEntry struct {
	Rank        int              `json:"rank"`
	UserID      uint             `json:"user_id"`
	DisplayName string           `json:"display_name"`
	TotalScore  float64          `json:"total_score"`
	Attempts    int              `json:"attempts"`
	AvgAccuracy float64          `json:"avg_accuracy"`
	Tier        performance.Tier `json:"tier"`
}

// RankInfo представляет позицию пользователя в лидерборде теста.
// Rank равен nil, когда пользователь не найден или ключ ответов теста
// еще не опубликован - это не ошибка.
type RankInfo struct {
	Rank              *int `json:"rank"`
	TotalParticipants int  `json:"total_participants"`
}

// LeaderboardService строит лидерборды и назначает уровни.
// Все выборки проходят тот же конвейер, что аналитика: только сданные
// попытки, только опубликованные ключи ответов, дедупликация.
type LeaderboardService struct {
	attemptRepo repository.AttemptRepository
	testRepo    repository.TestRepository
	userRepo    repository.UserRepository
	cacheRepo   repository.CacheRepository
	cacheTTL    time.Duration
}

// NewLeaderboardService создает новый сервис лидерборда
func NewLeaderboardService(
	attemptRepo repository.AttemptRepository,
	testRepo repository.TestRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	cacheTTL time.Duration,
) *LeaderboardService {
	return &LeaderboardService{
		attemptRepo: attemptRepo,
		testRepo:    testRepo,
		userRepo:    userRepo,
		cacheRepo:   cacheRepo,
		cacheTTL:    cacheTTL,
	}
}

// userAggregate накапливает показатели одного пользователя
// по каноническим попыткам выборки
type userAggregate struct {
	userID        uint
	totalScore    float64
	attempts      int
	correct       int
	questionsSeen int
	lastSubmitted time.Time
}

func (a *userAggregate) accuracy() float64 {
	if a.questionsSeen == 0 {
		return 0
	}
	return float64(a.correct) / float64(a.questionsSeen) * 100
}

// keyPublishedOnly отбрасывает попытки по тестам без опубликованного ключа
func (s *LeaderboardService) keyPublishedOnly(attempts []entity.Attempt) ([]entity.Attempt, error) {
	testIDs := make([]uint, 0, len(attempts))
	seen := make(map[uint]struct{}, len(attempts))
	for i := range attempts {
		if _, ok := seen[attempts[i].TestID]; !ok {
			seen[attempts[i].TestID] = struct{}{}
			testIDs = append(testIDs, attempts[i].TestID)
		}
	}
	tests, err := s.testRepo.GetByIDs(testIDs)
	if err != nil {
		return nil, err
	}
	published := make(map[uint]struct{}, len(tests))
	for i := range tests {
		if tests[i].AnswerKeyPublished {
			published[tests[i].ID] = struct{}{}
		}
	}

	eligible := make([]entity.Attempt, 0, len(attempts))
	for i := range attempts {
		if _, ok := published[attempts[i].TestID]; ok {
			eligible = append(eligible, attempts[i])
		}
	}
	return eligible, nil
}

// aggregate строит канонические попытки и сводит их в показатели
// по пользователям
func (s *LeaderboardService) aggregate(attempts []entity.Attempt) []userAggregate {
	canonical := performance.Deduplicate(attempts)

	index := make(map[uint]int, len(canonical))
	aggregates := make([]userAggregate, 0, len(canonical))
	for i := range canonical {
		a := &canonical[i]
		pos, ok := index[a.UserID]
		if !ok {
			pos = len(aggregates)
			index[a.UserID] = pos
			aggregates = append(aggregates, userAggregate{userID: a.UserID})
		}
		agg := &aggregates[pos]
		agg.totalScore += a.Score
		agg.attempts++
		agg.correct += a.CorrectCount
		agg.questionsSeen += a.TotalQuestionsSeen()
		if a.SubmittedAt != nil && a.SubmittedAt.After(agg.lastSubmitted) {
			agg.lastSubmitted = *a.SubmittedAt
		}
	}
	return aggregates
}

// sortAggregates упорядочивает по убыванию суммы баллов.
// Вторичный ключ детерминированный: более ранняя последняя сдача, затем
// меньший id пользователя. Исходная система полагалась на входной порядок;
// здесь это осознанное отступление ради воспроизводимости рангов.
func sortAggregates(aggregates []userAggregate) {
	sort.SliceStable(aggregates, func(i, j int) bool {
		if aggregates[i].totalScore != aggregates[j].totalScore {
			return aggregates[i].totalScore > aggregates[j].totalScore
		}
		if !aggregates[i].lastSubmitted.Equal(aggregates[j].lastSubmitted) {
			return aggregates[i].lastSubmitted.Before(aggregates[j].lastSubmitted)
		}
		return aggregates[i].userID < aggregates[j].userID
	})
}

// visibleUsers загружает пользователей и отбрасывает заблокированных
// и скрывшихся из лидерборда (по умолчанию пользователь виден)
func (s *LeaderboardService) visibleUsers(aggregates []userAggregate) (map[uint]*entity.User, error) {
	ids := make([]uint, 0, len(aggregates))
	for i := range aggregates {
		ids = append(ids, aggregates[i].userID)
	}
	users, err := s.userRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	visible := make(map[uint]*entity.User, len(users))
	for i := range users {
		if users[i].IsSuspended || !users[i].LeaderboardVisible {
			continue
		}
		visible[users[i].ID] = &users[i]
	}
	return visible, nil
}

// globalStanding возвращает видимые глобальные агрегаты организации
// (отсортированные) и множество топ-10. Уровень всегда вычисляется от
// глобальной картины, даже внутри лидерборда потока или теста.
func (s *LeaderboardService) globalStanding(orgID uint) ([]userAggregate, map[uint]*entity.User, map[uint]struct{}, error) {
	attempts, err := s.attemptRepo.GetSubmittedByOrganization(orgID)
	if err != nil {
		return nil, nil, nil, err
	}
	eligible, err := s.keyPublishedOnly(attempts)
	if err != nil {
		return nil, nil, nil, err
	}
	aggregates := s.aggregate(eligible)

	users, err := s.visibleUsers(aggregates)
	if err != nil {
		return nil, nil, nil, err
	}
	filtered := aggregates[:0]
	for i := range aggregates {
		if _, ok := users[aggregates[i].userID]; ok {
			filtered = append(filtered, aggregates[i])
		}
	}
	sortAggregates(filtered)

	top10 := make(map[uint]struct{}, globalTopSize)
	for i := 0; i < len(filtered) && i < globalTopSize; i++ {
		top10[filtered[i].userID] = struct{}{}
	}
	return filtered, users, top10, nil
}

// buildEntries превращает отсортированные агрегаты в строки лидерборда,
// назначая ранги и уровни
func buildEntries(
	aggregates []userAggregate,
	users map[uint]*entity.User,
	globalByUser map[uint]*userAggregate,
	top10 map[uint]struct{},
	limit int,
) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(aggregates))
	for i := range aggregates {
		if limit > 0 && len(entries) >= limit {
			break
		}
		agg := &aggregates[i]
		user, ok := users[agg.userID]
		if !ok {
			continue
		}

		// Уровень считается от глобальных показателей пользователя
		tierAttempts, tierAccuracy := agg.attempts, agg.accuracy()
		if global, ok := globalByUser[agg.userID]; ok {
			tierAttempts, tierAccuracy = global.attempts, global.accuracy()
		}
		_, inTop10 := top10[agg.userID]

		entries = append(entries, LeaderboardEntry{
			Rank:        len(entries) + 1,
			UserID:      agg.userID,
			DisplayName: user.DisplayName(),
			TotalScore:  agg.totalScore,
			Attempts:    agg.attempts,
			AvgAccuracy: agg.accuracy(),
			Tier:        performance.AssignTier(tierAttempts, tierAccuracy, inTop10),
		})
	}
	return entries
}

// cachedVersion читает текущую версию лидерборда из кеша
func (s *LeaderboardService) cachedVersion() string {
	if s.cacheRepo == nil {
		return "0"
	}
	version, err := s.cacheRepo.Get(leaderboardVersionKey)
	if err != nil {
		return "0"
	}
	return version
}

// GetGlobalLeaderboard возвращает глобальный лидерборд организации.
// Выборка идет через сквозной кеш, ключуемый (scope, версия): версия
// бампается при каждой сдаче, поэтому явная инвалидация не нужна.
func (s *LeaderboardService) GetGlobalLeaderboard(orgID uint, limit int) ([]LeaderboardEntry, error) {
	cacheKey := fmt.Sprintf("leaderboard:global:%d:v%s:l%d", orgID, s.cachedVersion(), limit)
	if s.cacheRepo != nil {
		var cached []LeaderboardEntry
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[LeaderboardService] Ошибка чтения кеша %s: %v", cacheKey, err)
		}
	}

	aggregates, users, top10, err := s.globalStanding(orgID)
	if err != nil {
		return nil, err
	}
	globalByUser := make(map[uint]*userAggregate, len(aggregates))
	for i := range aggregates {
		globalByUser[aggregates[i].userID] = &aggregates[i]
	}

	entries := buildEntries(aggregates, users, globalByUser, top10, limit)

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(cacheKey, entries, s.cacheTTL); err != nil {
			log.Printf("[LeaderboardService] Ошибка записи кеша %s: %v", cacheKey, err)
		}
	}
	return entries, nil
}

// scopedLeaderboard строит лидерборд по подмножеству тестов
func (s *LeaderboardService) scopedLeaderboard(orgID uint, testIDs []uint, limit int) ([]LeaderboardEntry, error) {
	attempts, err := s.attemptRepo.GetSubmittedByTests(testIDs)
	if err != nil {
		return nil, err
	}
	eligible, err := s.keyPublishedOnly(attempts)
	if err != nil {
		return nil, err
	}
	aggregates := s.aggregate(eligible)

	users, err := s.visibleUsers(aggregates)
	if err != nil {
		return nil, err
	}
	filtered := aggregates[:0]
	for i := range aggregates {
		if _, ok := users[aggregates[i].userID]; ok {
			filtered = append(filtered, aggregates[i])
		}
	}
	sortAggregates(filtered)

	globalAggs, _, top10, err := s.globalStanding(orgID)
	if err != nil {
		return nil, err
	}
	globalByUser := make(map[uint]*userAggregate, len(globalAggs))
	for i := range globalAggs {
		globalByUser[globalAggs[i].userID] = &globalAggs[i]
	}

	return buildEntries(filtered, users, globalByUser, top10, limit), nil
}

// GetBatchLeaderboard возвращает лидерборд потока: агрегация идет только
// по тестам, привязанным к потоку
func (s *LeaderboardService) GetBatchLeaderboard(orgID, batchID uint, limit int) ([]LeaderboardEntry, error) {
	cacheKey := fmt.Sprintf("leaderboard:batch:%d:v%s:l%d", batchID, s.cachedVersion(), limit)
	if s.cacheRepo != nil {
		var cached []LeaderboardEntry
		if err := s.cacheRepo.GetJSON(cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	tests, err := s.testRepo.GetByBatch(batchID)
	if err != nil {
		return nil, err
	}
	testIDs := make([]uint, 0, len(tests))
	for i := range tests {
		testIDs = append(testIDs, tests[i].ID)
	}

	entries, err := s.scopedLeaderboard(orgID, testIDs, limit)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(cacheKey, entries, s.cacheTTL); err != nil {
			log.Printf("[LeaderboardService] Ошибка записи кеша %s: %v", cacheKey, err)
		}
	}
	return entries, nil
}

// GetTestLeaderboard возвращает лидерборд одного теста.
// Для теста с неопубликованным ключом ответов возвращается пустой список.
func (s *LeaderboardService) GetTestLeaderboard(orgID, testID uint, limit int) ([]LeaderboardEntry, error) {
	test, err := s.testRepo.GetByID(testID)
	if err != nil {
		return nil, err
	}
	if !test.AnswerKeyPublished {
		return []LeaderboardEntry{}, nil
	}
	return s.scopedLeaderboard(orgID, []uint{testID}, limit)
}

// GetTestRank возвращает 1-based позицию пользователя в лидерборде теста
// и общее число участников. Неопубликованный ключ ответов дает нулевой
// (nil) ранг, а не ошибку.
func (s *LeaderboardService) GetTestRank(userID, testID uint) (*RankInfo, error) {
	test, err := s.testRepo.GetByID(testID)
	if err != nil {
		return nil, err
	}
	if !test.AnswerKeyPublished {
		return &RankInfo{Rank: nil, TotalParticipants: 0}, nil
	}

	attempts, err := s.attemptRepo.GetSubmittedByTests([]uint{testID})
	if err != nil {
		return nil, err
	}
	aggregates := s.aggregate(attempts)

	// Ранг считается по той же видимой выборке и тем же ключам сортировки,
	// что и строки лидерборда теста
	users, err := s.visibleUsers(aggregates)
	if err != nil {
		return nil, err
	}
	filtered := aggregates[:0]
	for i := range aggregates {
		if _, ok := users[aggregates[i].userID]; ok {
			filtered = append(filtered, aggregates[i])
		}
	}
	sortAggregates(filtered)

	info := &RankInfo{TotalParticipants: len(filtered)}
	for i := range filtered {
		if filtered[i].userID == userID {
			rank := i + 1
			info.Rank = &rank
			break
		}
	}
	return info, nil
}

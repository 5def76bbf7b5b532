package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
	"github.com/yourusername/coaching-api/internal/service"
)

// AnalyticsHandler обрабатывает запросы аналитики студента
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler создает новый обработчик аналитики
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// resolveTargetUser определяет, чью аналитику запрашивают. Студент видит
// только свою; администратор может указать любого через ?user_id=.
func (h *AnalyticsHandler) resolveTargetUser(c *gin.Context) (uint, error) {
	callerID := c.MustGet("user_id").(uint)
	raw := c.Query("user_id")
	if raw == "" {
		return callerID, nil
	}

	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, apperrors.ErrValidation
	}
	targetID := uint(parsed)
	if targetID != callerID && !c.GetBool("is_admin") {
		return 0, apperrors.ErrForbidden
	}
	return targetID, nil
}

// GetSummary возвращает сводную аналитику студента
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	summary, err := h.analyticsService.GetStudentSummary(userID)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetTrend возвращает тренд успеваемости (до ?limit= последних попыток)
func (h *AnalyticsHandler) GetTrend(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	trend, err := h.analyticsService.GetPerformanceTrend(userID, limit)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"trend": trend})
}

// GetHeatmap возвращает календарную активность в диапазоне ?from=&to=
// (формат YYYY-MM-DD, по умолчанию последние 90 дней)
func (h *AnalyticsHandler) GetHeatmap(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	now := time.Now()
	from := now.AddDate(0, 0, -90)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
			return
		}
		// Включаем весь день "to"
		to = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	heatmap, err := h.analyticsService.GetActivityHeatmap(userID, from, to)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"heatmap": heatmap})
}

// GetAchievements возвращает заработанные бейджи студента
func (h *AnalyticsHandler) GetAchievements(c *gin.Context) {
	userID, err := h.resolveTargetUser(c)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	achievements, err := h.analyticsService.GetAchievements(userID)
	if err != nil {
		h.handleAnalyticsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": achievements})
}

// handleAnalyticsError преобразует ошибки сервиса в HTTP статусы
func (h *AnalyticsHandler) handleAnalyticsError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AnalyticsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

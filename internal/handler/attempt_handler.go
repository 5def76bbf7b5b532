package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/coaching-api/internal/handler/dto"
	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
	"github.com/yourusername/coaching-api/internal/service"
)

// AttemptHandler обрабатывает запросы жизненного цикла попытки
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttemptRequest представляет запрос на старт попытки
type StartAttemptRequest struct {
	TestID   uint `json:"test_id" binding:"required"`
	ForceNew bool `json:"force_new"`
}

// StartAttempt начинает или возобновляет попытку текущего пользователя
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	orgID := c.MustGet("organization_id").(uint)

	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.attemptService.StartAttempt(userID, orgID, req.TestID, req.ForceNew)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	// Детали зачета на старте не нужны: попытка идет
	c.JSON(http.StatusCreated, dto.NewAttemptResponse(attempt, false))
}

// SaveAnswerRequest представляет запрос на сохранение ответа
type SaveAnswerRequest struct {
	QuestionID      uint  `json:"question_id" binding:"required"`
	SelectedOptions []int `json:"selected_options"`
}

// SaveAnswer сохраняет ответ на вопрос идущей попытки
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	publicID := c.Param("public_id")

	var req SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.attemptService.SaveAnswer(userID, publicID, req.QuestionID, req.SelectedOptions); err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// SubmitAttempt сдает попытку и возвращает итоговый зачет
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	orgID := c.MustGet("organization_id").(uint)
	publicID := c.Param("public_id")

	attempt, err := h.attemptService.SubmitAttempt(userID, orgID, publicID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	// Детали зачета гейтуются публикацией ключа ответов так же,
	// как и все последующие чтения
	_, test, detailErr := h.attemptService.GetAttemptDetail(userID, false, orgID, publicID)
	includeScore := detailErr == nil && test.AnswerKeyPublished
	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, includeScore))
}

// GetAttempt возвращает попытку по публичному идентификатору
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	orgID := c.MustGet("organization_id").(uint)
	isAdmin := c.GetBool("is_admin")
	publicID := c.Param("public_id")

	attempt, test, err := h.attemptService.GetAttemptDetail(userID, isAdmin, orgID, publicID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, test.AnswerKeyPublished))
}

// GetResumableAttempt возвращает незавершенную попытку для теста
// (проверка возобновления перед стартом)
func (h *AttemptHandler) GetResumableAttempt(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	testID, err := strconv.ParseUint(c.Query("test_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test_id"})
		return
	}

	attempt, err := h.attemptService.GetResumableAttempt(userID, uint(testID))
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, false))
}

// ListMyAttempts возвращает список попыток пользователя, обогащенный
// данными тестов. Администратор может запросить чужой список через user_id.
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	callerID := c.MustGet("user_id").(uint)
	isAdmin := c.GetBool("is_admin")

	targetID := callerID
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		targetID = uint(parsed)
	}

	summaries, err := h.attemptService.ListUserAttempts(callerID, isAdmin, targetID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": summaries})
}

// handleAttemptError преобразует ошибки сервиса в HTTP статусы
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrInvalidState) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

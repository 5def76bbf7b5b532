package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	apperrors "github.com/yourusername/coaching-api/internal/pkg/errors"
	"github.com/yourusername/coaching-api/internal/service"
)

// LeaderboardHandler обрабатывает запросы лидербордов
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
	defaultLimit       int
}

// NewLeaderboardHandler создает новый обработчик лидербордов
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		defaultLimit:       defaultLimit,
	}
}

func (h *LeaderboardHandler) limitFromQuery(c *gin.Context) (int, bool) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

// GetGlobalLeaderboard возвращает глобальный лидерборд организации
func (h *LeaderboardHandler) GetGlobalLeaderboard(c *gin.Context) {
	orgID := c.MustGet("organization_id").(uint)

	limit, ok := h.limitFromQuery(c)
	if !ok {
		return
	}

	entries, err := h.leaderboardService.GetGlobalLeaderboard(orgID, limit)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetBatchLeaderboard возвращает лидерборд потока
func (h *LeaderboardHandler) GetBatchLeaderboard(c *gin.Context) {
	orgID := c.MustGet("organization_id").(uint)
	batchID := c.MustGet("batch_id").(uint)

	limit, ok := h.limitFromQuery(c)
	if !ok {
		return
	}

	entries, err := h.leaderboardService.GetBatchLeaderboard(orgID, batchID, limit)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetTestLeaderboard возвращает лидерборд одного теста
func (h *LeaderboardHandler) GetTestLeaderboard(c *gin.Context) {
	orgID := c.MustGet("organization_id").(uint)
	testID := c.MustGet("test_id").(uint)

	limit, ok := h.limitFromQuery(c)
	if !ok {
		return
	}

	entries, err := h.leaderboardService.GetTestLeaderboard(orgID, testID, limit)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// GetTestRank возвращает позицию текущего пользователя в лидерборде теста
func (h *LeaderboardHandler) GetTestRank(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	testID := c.MustGet("test_id").(uint)

	info, err := h.leaderboardService.GetTestRank(userID, testID)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// ExportLeaderboard экспортирует глобальный лидерборд в CSV или XLSX
// (?format=csv|xlsx, по умолчанию csv). Только для администраторов.
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	orgID := c.MustGet("organization_id").(uint)
	format := c.DefaultQuery("format", "csv")

	// Экспорт всегда полный, без лимита
	entries, err := h.leaderboardService.GetGlobalLeaderboard(orgID, 0)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard_%d_%s", orgID, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, entries, filename)
	default:
		h.exportCSV(c, entries, filename)
	}
}

// exportCSV экспортирует лидерборд в CSV с правильным экранированием спецсимволов
func (h *LeaderboardHandler) exportCSV(c *gin.Context, entries []service.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Место", "Студент", "Сумма баллов", "Попыток", "Средняя точность (%)", "Уровень"})

	for _, e := range entries {
		writer.Write([]string{
			strconv.Itoa(e.Rank),
			sanitizeForExcel(e.DisplayName),
			strconv.FormatFloat(e.TotalScore, 'f', 2, 64),
			strconv.Itoa(e.Attempts),
			strconv.FormatFloat(e.AvgAccuracy, 'f', 1, 64),
			e.Tier.Label,
		})
	}
}

// exportXLSX экспортирует лидерборд в Excel с использованием StreamWriter
func (h *LeaderboardHandler) exportXLSX(c *gin.Context, entries []service.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Лидерборд"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[LeaderboardHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Место", "Студент", "Сумма баллов", "Попыток", "Средняя точность (%)", "Уровень"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи заголовков: %v", err)
	}

	for i, e := range entries {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{e.Rank, sanitizeForExcel(e.DisplayName), e.TotalScore, e.Attempts, e.AvgAccuracy, e.Tier.Label}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[LeaderboardHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleLeaderboardError преобразует ошибки сервиса в HTTP статусы
func (h *LeaderboardHandler) handleLeaderboardError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in LeaderboardHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

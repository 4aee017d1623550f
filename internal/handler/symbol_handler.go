package handler

import (
	"fmt"
	"net/http"

	"github.com/yourorg/symbol-directory/internal/model"
	"github.com/yourorg/symbol-directory/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SymbolHandler handles worklist, search and system-config requests
type SymbolHandler struct {
	symbolService *service.SymbolService
	searchService *service.SearchService
	logger        *zap.Logger
}

// NewSymbolHandler creates a new symbol handler
func NewSymbolHandler(symbolService *service.SymbolService, searchService *service.SearchService, logger *zap.Logger) *SymbolHandler {
	return &SymbolHandler{
		symbolService: symbolService,
		searchService: searchService,
		logger:        logger,
	}
}

// GetWorklist returns the current ingestion worklist
// GET /get_ingestion_symbols/
func (h *SymbolHandler) GetWorklist(c *gin.Context) {
	records, err := h.symbolService.GetWorklist(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to get ingestion symbols", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

// SetWorklist overwrites the ingestion worklist
// POST /set_ingestion_symbols/
func (h *SymbolHandler) SetWorklist(c *gin.Context) {
	var records []model.SymbolRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.symbolService.SetWorklist(c.Request.Context(), records); err != nil {
		h.logger.Error("failed to set ingestion symbols", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ingestion symbols set successfully"})
}

// AddSymbol adds one symbol to the worklist unless it is already present
// POST /add_ingestion_symbol/
func (h *SymbolHandler) AddSymbol(c *gin.Context) {
	var record model.SymbolRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.symbolService.AddToWorklist(c.Request.Context(), record)
	if err != nil {
		h.logger.Error("failed to add ingestion symbol", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if status == service.StatusSkipped {
		c.JSON(http.StatusOK, gin.H{"message": "Symbol already exists.", "status": service.StatusSkipped})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Symbol %s added successfully.", record.Symbol)})
}

// RemoveSymbol removes one symbol from the worklist if present
// POST /remove_ingestion_symbol/
func (h *SymbolHandler) RemoveSymbol(c *gin.Context) {
	var record model.SymbolRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.symbolService.RemoveFromWorklist(c.Request.Context(), record)
	if err != nil {
		h.logger.Error("failed to remove ingestion symbol", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if status == service.StatusNotFound {
		c.JSON(http.StatusOK, gin.H{"message": "Symbol not found.", "status": service.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Symbol %s removed successfully.", record.Symbol)})
}

// Search answers substring search queries across the partitioned corpus
// GET /search_symbols/?search_string=&exchange=&security_type=
func (h *SymbolHandler) Search(c *gin.Context) {
	var filter model.SearchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.searchService.Search(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("symbol search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetConfig returns the system configuration
// GET /get_system_config/
func (h *SymbolHandler) GetConfig(c *gin.Context) {
	cfg, err := h.symbolService.GetConfig(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to get system config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SetConfig replaces the system configuration. Omitted fields are filled with
// the documented defaults before the whole aggregate is stored.
// POST /set_system_config/
func (h *SymbolHandler) SetConfig(c *gin.Context) {
	var update model.SystemConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.symbolService.SetConfig(c.Request.Context(), update.Resolve()); err != nil {
		h.logger.Error("failed to set system config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "System config set successfully"})
}

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"sharia-audit-backend/models"
	"sharia-audit-backend/service"
)

// AuditHandler handles HTTP requests for contract audits
type AuditHandler struct {
	auditService     *service.AuditService
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		maxFileSize:  20 * 1024 * 1024, // 20MB
		allowedMimeTypes: map[string]bool{
			"application/pdf":          true,
			"application/octet-stream": true,
		},
	}
}

// AnalyzeContract handles POST /api/audit/analyze. The uploaded contract
// is audited clause by clause and results stream back as server-sent
// events until a terminal error or complete event.
func (h *AuditHandler) AnalyzeContract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" && strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		mimeType = "application/pdf"
	}
	if !h.allowedMimeTypes[mimeType] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Allowed types: PDF",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	document, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_READ_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	ctx := c.Request.Context()
	events := make(chan models.AuditEvent, 16)

	go func() {
		defer close(events)
		h.auditService.Run(ctx, document, func(event models.AuditEvent) bool {
			select {
			case events <- event:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		sse.Encode(w, sse.Event{Data: event})
		return true
	})
}

// DeepExplainRequest represents the request body for a contextual
// explanation of one clause against the full extracted clause set.
type DeepExplainRequest struct {
	ID       string          `json:"id" binding:"required"`
	Clauses  []models.Clause `json:"clauses" binding:"required"`
	RuleText string          `json:"rule_text"`
}

// DeepExplain handles POST /api/audit/deep-explain
func (h *AuditHandler) DeepExplain(c *gin.Context) {
	var req DeepExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result, err := h.auditService.DeepExplain(c.Request.Context(), req.ID, req.Clauses, req.RuleText)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CLAUSE_NOT_FOUND",
				"message": fmt.Sprintf("No clause with id %q in the submitted set", req.ID),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fines-service/internal/http/middleware"
	"fines-service/internal/model"
	"fines-service/internal/repository"
	"fines-service/internal/service"
	"fines-service/internal/utils"
)

type Handler struct {
	uploadService *service.UploadService
	ticketService *service.TicketService
	log           zerolog.Logger
}

func NewHandler(
	uploadService *service.UploadService,
	ticketService *service.TicketService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		uploadService: uploadService,
		ticketService: ticketService,
		log:           log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public pipeline endpoints. Response bodies are part of the external
	// contract consumed by the upload form and the dashboard poller.
	r.POST("/upload", h.uploadImage)
	r.POST("/tickets/process", h.processTicket)
	r.GET("/tickets/pending", h.listPendingTickets)

	internal := r.Group("/internal")
	internal.Use(authMiddleware)
	{
		internal.GET("/tickets", h.listTickets)
		internal.POST("/tickets/:id/resend-notification", h.resendNotification)
	}
}

func (h *Handler) uploadImage(c *gin.Context) {
	var req struct {
		Image string `json:"image" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileKey, err := h.uploadService.Upload(c.Request.Context(), req.Image)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Upload successful",
		"file_key": fileKey,
	})
}

func (h *Handler) processTicket(c *gin.Context) {
	var req struct {
		Text     string `json:"text"`
		S3Key    string `json:"s3_key" binding:"required"`
		S3Bucket string `json:"s3_bucket" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.ticketService.Process(c.Request.Context(), service.ProcessInput{
		Text:     req.Text,
		S3Bucket: req.S3Bucket,
		S3Key:    req.S3Key,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ticket processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Processed successfully",
		"ticket_id": ticket.ID.String(),
	})
}

func (h *Handler) listPendingTickets(c *gin.Context) {
	tickets, err := h.ticketService.ListPending(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list pending tickets")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *Handler) listTickets(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter := repository.TicketListFilter{}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		ts := model.TicketStatus(strings.ToUpper(status))
		filter.Status = &ts
	}
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		normalized := utils.NormalizePlate(plate)
		filter.LicencePlate = &normalized
	}

	tickets, err := h.ticketService.List(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(tickets))
}

func (h *Handler) resendNotification(c *gin.Context) {
	if _, ok := middleware.MustPrincipal(c); !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid ticket id"))
		return
	}

	if err := h.ticketService.ResendNotification(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "notification sent"}))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

package handlers

import (
	"errors"
	"net/http"

	"tradely/models"
	"tradely/services/dispatch"
	"tradely/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DispatchHandler exposes the dispatch engine over REST.
type DispatchHandler struct {
	Service dispatch.DispatchService
	Logger  *zap.Logger
}

func NewDispatchHandler(svc dispatch.DispatchService, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{Service: svc, Logger: logger}
}

func statusForDispatchError(err error) int {
	switch dispatch.ErrorCode(err) {
	case dispatch.CodeNotFound:
		return http.StatusNotFound
	case dispatch.CodeForbidden:
		return http.StatusForbidden
	case dispatch.CodeConflict, dispatch.CodeCorrupted:
		return http.StatusConflict
	case dispatch.CodeNoProviders:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *DispatchHandler) respondError(c *gin.Context, err error) {
	status := statusForDispatchError(err)
	var de *dispatch.DispatchError
	if status != http.StatusInternalServerError && errors.As(err, &de) {
		utils.JSONError(c, status, de.Message, de.Code)
		return
	}
	h.Logger.Error("dispatch request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, utils.ErrorResponse{Message: "Internal Server Error"})
}

// CreateDispatchHandler builds the ranked queue and first offer for a
// customer request.
func (h *DispatchHandler) CreateDispatchHandler(c *gin.Context) {
	userID := c.GetString("userID")
	var req models.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid dispatch request", err.Error())
		return
	}

	booking, err := h.Service.CreateDispatch(userID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// AcceptOfferHandler lets the provider holding the pending offer take the job.
func (h *DispatchHandler) AcceptOfferHandler(c *gin.Context) {
	providerID := c.GetString("providerID")
	bookingID := c.Param("bookingID")

	booking, err := h.Service.AcceptOffer(bookingID, providerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DeclineOfferHandler resolves the pending offer as declined and cascades.
func (h *DispatchHandler) DeclineOfferHandler(c *gin.Context) {
	providerID := c.GetString("providerID")
	bookingID := c.Param("bookingID")

	booking, err := h.Service.DeclineOffer(bookingID, providerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ForceAdvanceHandler is the admin escape hatch for stuck bookings.
func (h *DispatchHandler) ForceAdvanceHandler(c *gin.Context) {
	bookingID := c.Param("bookingID")

	booking, err := h.Service.ForceAdvanceOffer(bookingID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GetOffersDebugHandler returns the dispatch state of a booking to its
// customer or an admin.
func (h *DispatchHandler) GetOffersDebugHandler(c *gin.Context) {
	requesterID := c.GetString("userID")
	isAdmin := c.GetBool("isAdmin")
	bookingID := c.Param("bookingID")

	debug, err := h.Service.GetOffersDebug(bookingID, requesterID, isAdmin)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debug)
}

// MyPendingOffersHandler is the provider's offer inbox.
func (h *DispatchHandler) MyPendingOffersHandler(c *gin.Context) {
	providerID := c.GetString("providerID")

	offers, err := h.Service.ListMyPendingOffers(providerID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

package handlers

import (
	"net/http"

	"tradely/services/catalog"

	"github.com/gin-gonic/gin"
)

// ListServicesHandler returns the service templates customers can request.
func ListServicesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": catalog.All()})
}

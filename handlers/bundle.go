package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Dispatch endpoints
	CreateDispatch  gin.HandlerFunc
	AcceptOffer     gin.HandlerFunc
	DeclineOffer    gin.HandlerFunc
	ForceAdvance    gin.HandlerFunc
	GetOffersDebug  gin.HandlerFunc
	MyPendingOffers gin.HandlerFunc

	// Catalogue endpoints
	ListServices gin.HandlerFunc
}

package main

import (
	"hbs/src/payments"
	"hbs/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

func adminHandlers(g *gin.RouterGroup, orch *payments.Orchestrator) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			bookings, err := orch.ListAll(ctx.Request.Context())
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": bookings, "count": len(bookings)})
		}).
		PUT("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
				return
			}
			var body types.UpdateBookingStatusRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking status", "error": err.Error()})
				return
			}
			booking, err := orch.UpdateStatus(ctx.Request.Context(), params.ID, body.BookingStatus, body.Message)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Booking status updated", "booking": booking})
		})
	return g
}

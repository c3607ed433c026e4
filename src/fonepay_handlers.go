package main

import (
	"hbs/src/payments"
	"hbs/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// fonepayCallbackRoute is public; the request is authenticated by its signature.
func fonepayCallbackRoute(g *gin.Engine, orch *payments.Orchestrator) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/fonepay-callback", func(ctx *gin.Context) {
		var body types.FonePayCallbackRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			log.Printf("[Callback] Malformed callback: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false})
			return
		}
		res, err := orch.HandleGatewayCallback(ctx.Request.Context(), payments.Callback{
			TransactionID: body.TransactionID,
			ReferenceID:   body.ReferenceID,
			Status:        body.Status,
			Signature:     body.Signature,
		})
		if err != nil {
			log.Printf("[Callback] %s\n", err.Error())
			ctx.JSON(payments.HTTPStatus(err), gin.H{"success": false, "message": payments.Message(err)})
			return
		}
		log.Printf("[Callback] booking=%s payment=%s status=%s replayed=%v\n", res.Booking.BookingID, res.Payment.Status, body.Status, res.Replayed)
		ctx.JSON(http.StatusOK, gin.H{"success": true})
	})
	return apiv1
}

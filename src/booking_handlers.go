package main

import (
	"hbs/src/models"
	"hbs/src/payments"
	"hbs/src/types"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type myBooking struct {
	models.Booking
	Payment any `json:"payment"`
}

var payLaterPlaceholder = gin.H{"status": types.TRANSACTION_PENDING, "paymentMethod": "Pay later"}

func identity(ctx *gin.Context) payments.Identity {
	return payments.Identity{UserID: ctx.GetUint("id"), Role: ctx.GetString("role")}
}

func respondError(ctx *gin.Context, err error) {
	ctx.JSON(payments.HTTPStatus(err), gin.H{
		"success": false,
		"message": payments.Message(err),
		"error":   err.Error(),
	})
}

func bookingHandlers(g *gin.RouterGroup, orch *payments.Orchestrator) *gin.RouterGroup {
	g.
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid booking details", "error": err.Error()})
				return
			}
			res, err := orch.CreateBooking(ctx.Request.Context(), identity(ctx), payments.BookingFields{
				BookingType:  body.BookingType,
				NumPeople:    body.NumPeople,
				Name:         body.Name,
				Email:        body.Email,
				PhoneNumber:  body.PhoneNumber,
				Date:         body.Date,
				DateExtended: body.DateExtended,
				Time:         body.Time,
				BookingFor:   body.BookingFor,
				Amount:       body.Amount,
			}, body.PaymentMethod)
			if err != nil {
				log.Printf("Error creating booking: %s\n", err.Error())
				if res != nil && res.Booking != nil {
					ctx.JSON(payments.HTTPStatus(err), gin.H{
						"success": false,
						"message": "Payment initiation failed",
						"error":   err.Error(),
						"booking": res.Booking,
					})
					return
				}
				respondError(ctx, err)
				return
			}
			response := gin.H{
				"success":         true,
				"message":         "Booking successful!",
				"booking":         res.Booking,
				"paymentRequired": res.PaymentRequired,
			}
			if res.PaymentInfo != nil {
				response["paymentInfo"] = res.PaymentInfo
			}
			ctx.JSON(http.StatusCreated, response)
		}).
		GET("/my-bookings", func(ctx *gin.Context) {
			bookings, err := orch.ListMine(ctx.Request.Context(), identity(ctx))
			if err != nil {
				respondError(ctx, err)
				return
			}
			data := make([]myBooking, 0, len(bookings))
			for _, b := range bookings {
				var payment any = payLaterPlaceholder
				if b.Payment != nil {
					payment = b.Payment
				}
				data = append(data, myBooking{Booking: b, Payment: payment})
			}
			ctx.JSON(http.StatusOK, gin.H{"success": true, "data": data, "count": len(data)})
		}).
		POST("/verify-payment", func(ctx *gin.Context) {
			var body types.VerifyPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payment details", "error": err.Error()})
				return
			}
			res, err := orch.VerifyPayment(ctx.Request.Context(), identity(ctx), payments.VerifyRequest{
				BookingID:     body.BookingID,
				TransactionID: body.TransactionID,
				Screenshot:    body.Screenshot,
				Method:        body.PaymentMethod,
			})
			if err != nil {
				log.Printf("Error verifying payment: %s\n", err.Error())
				respondError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "Payment verified successfully",
				"booking": res.Booking,
				"payment": res.Payment,
			})
		})
	return g
}

package main

import (
	"encoding/json"
	"fmt"
	"hbs/src/config"
	"hbs/src/lib/fonepay"
	"hbs/src/payments"
	"hbs/src/store"
	"hbs/src/types"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

const (
	jwtSecret     = "secret"
	fonepaySecret = "fonepay-secret"
)

type TestSuite struct {
	suite.Suite
	gateway    *httptest.Server
	settled    atomic.Bool
	available  atomic.Bool
	stores     store.Stores
	router     *gin.Engine
	signer     *fonepay.Signer
	userToken  string
	adminToken string
}

func generateJWT(userID uint, role string) (string, error) {
	claims := types.Claims{
		Email: "someone@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
}

func (s *TestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	registerValidators()
	os.Setenv("JWT_SECRET", jwtSecret)
	os.Unsetenv("MAINTENANCE_MODE")

	s.gateway = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.available.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		ref := gjson.GetBytes(body, "transactionId").String()
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/verify" {
			fmt.Fprintf(w, `{"success":%v}`, s.settled.Load())
			return
		}
		fmt.Fprintf(w, `{"paymentUrl":"https://pay.test/%s","transactionId":"FP-%s"}`, ref, ref)
	}))
	s.signer = fonepay.NewSigner(fonepaySecret)

	var err error
	s.userToken, err = generateJWT(7, types.ROLE_USER)
	require.NoError(s.T(), err)
	s.adminToken, err = generateJWT(1, types.ROLE_ADMIN)
	require.NoError(s.T(), err)
}

func (s *TestSuite) TearDownSuite() {
	s.gateway.Close()
}

func (s *TestSuite) SetupTest() {
	s.settled.Store(true)
	s.available.Store(true)
	s.stores = store.NewMemory().Stores()

	client := fonepay.NewClient(config.FonePay{
		MerchantID: "M-1",
		SecretKey:  fonepaySecret,
		APIURL:     s.gateway.URL,
		Timeout:    time.Second,
	}, nil)
	orch := payments.New(s.stores, client, client.Signer(), payments.NewPolicy([]string{"fonepay"}))

	s.router = setupRouter()
	s.router = maintenanceModeMiddleware(s.router)
	registerRoutes(s.router, orch)
}

func (s *TestSuite) do(method, url, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = strings.NewReader(string(b))
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func bookingBody(method types.PaymentMethod) map[string]any {
	return map[string]any{
		"bookingType":   "room",
		"numPeople":     2,
		"name":          "Guest",
		"email":         "guest@example.com",
		"phoneNumber":   "9800000000",
		"date":          "2026-03-10",
		"time":          "14:00",
		"bookingFor":    "deluxe",
		"amount":        1000,
		"paymentMethod": method,
	}
}

func (s *TestSuite) callbackBody(bookingID, txid, status string) map[string]any {
	return map[string]any{
		"transactionId": txid,
		"referenceId":   bookingID,
		"status":        status,
		"signature": s.signer.Sign(fonepay.Fields{
			{Key: "transactionId", Value: txid},
			{Key: "referenceId", Value: bookingID},
			{Key: "status", Value: status},
		}),
	}
}

func (s *TestSuite) createBooking(method types.PaymentMethod) string {
	w := s.do("POST", "/api/v1/bookings", s.userToken, bookingBody(method))
	require.Equal(s.T(), http.StatusCreated, w.Code, w.Body.String())
	return gjson.Get(w.Body.String(), "booking.bookingId").String()
}

func (s *TestSuite) TestPingRoute() {
	w := s.do("GET", "/", "", nil)

	assert.Equal(s.T(), 200, w.Code)
	assert.Equal(s.T(), "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func (s *TestSuite) TestMaintenanceMode() {
	s.T().Setenv("MAINTENANCE_MODE", "true")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestUnauthorized() {
	w := s.do("POST", "/api/v1/bookings", "", bookingBody(types.METHOD_PAY_LATER))
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	w = s.do("GET", "/api/v1/bookings", s.userToken, nil)
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *TestSuite) TestCreateBookingValidation() {
	s.Run("Should reject an unknown payment method", func() {
		w := s.do("POST", "/api/v1/bookings", s.userToken, bookingBody("cash"))
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "success").Bool())
	})

	s.Run("Should reject a missing amount", func() {
		body := bookingBody(types.METHOD_PAY_LATER)
		delete(body, "amount")
		w := s.do("POST", "/api/v1/bookings", s.userToken, body)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		assert.NotEmpty(s.T(), gjson.Get(w.Body.String(), "error").String())
	})
}

func (s *TestSuite) TestPayLaterBooking() {
	w := s.do("POST", "/api/v1/bookings", s.userToken, bookingBody(types.METHOD_PAY_LATER))
	require.Equal(s.T(), http.StatusCreated, w.Code)
	res := w.Body.String()
	assert.Equal(s.T(), "Booking successful!", gjson.Get(res, "message").String())
	assert.False(s.T(), gjson.Get(res, "paymentRequired").Bool())
	assert.False(s.T(), gjson.Get(res, "paymentInfo").Exists())
	assert.Equal(s.T(), "pending", gjson.Get(res, "booking.paymentStatus").String())

	w = s.do("GET", "/api/v1/my-bookings", s.userToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	res = w.Body.String()
	assert.Equal(s.T(), int64(1), gjson.Get(res, "count").Int())
	assert.Equal(s.T(), "payLater", gjson.Get(res, "data.0.payment.paymentMethod").String())
	assert.Equal(s.T(), "pending", gjson.Get(res, "data.0.payment.status").String())
}

func (s *TestSuite) TestFonePayFlow() {
	w := s.do("POST", "/api/v1/bookings", s.userToken, bookingBody(types.METHOD_FONEPAY))
	require.Equal(s.T(), http.StatusCreated, w.Code)
	res := w.Body.String()
	bookingID := gjson.Get(res, "booking.bookingId").String()
	assert.True(s.T(), gjson.Get(res, "paymentRequired").Bool())
	assert.Equal(s.T(), "https://pay.test/"+bookingID, gjson.Get(res, "paymentInfo.paymentUrl").String())
	assert.NotEmpty(s.T(), gjson.Get(res, "paymentInfo.paymentId").String())

	s.Run("Should reject a tampered callback", func() {
		body := s.callbackBody(bookingID, "FP-1", "failed")
		body["status"] = "success"
		w := s.do("POST", "/api/v1/fonepay-callback", "", body)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		assert.False(s.T(), gjson.Get(w.Body.String(), "success").Bool())
	})

	s.Run("Should return 404 for an unknown booking", func() {
		w := s.do("POST", "/api/v1/fonepay-callback", "", s.callbackBody("UNKNOWN000", "FP-1", "success"))
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})

	s.Run("Should settle the booking on a success callback", func() {
		w := s.do("POST", "/api/v1/fonepay-callback", "", s.callbackBody(bookingID, "FP-1", "success"))
		assert.Equal(s.T(), http.StatusOK, w.Code)
		assert.True(s.T(), gjson.Get(w.Body.String(), "success").Bool())

		w = s.do("GET", "/api/v1/my-bookings", s.userToken, nil)
		res := w.Body.String()
		assert.Equal(s.T(), "paid", gjson.Get(res, "data.0.paymentStatus").String())
		assert.Equal(s.T(), "confirmed", gjson.Get(res, "data.0.bookingStatus").String())
		assert.Equal(s.T(), "verified", gjson.Get(res, "data.0.payment.status").String())
		assert.Equal(s.T(), "FP-1", gjson.Get(res, "data.0.payment.transactionId").String())
	})

	s.Run("Should acknowledge a replayed callback", func() {
		w := s.do("POST", "/api/v1/fonepay-callback", "", s.callbackBody(bookingID, "FP-1", "success"))
		assert.Equal(s.T(), http.StatusOK, w.Code)
	})
}

func (s *TestSuite) TestFonePayGatewayDown() {
	s.available.Store(false)

	w := s.do("POST", "/api/v1/bookings", s.userToken, bookingBody(types.METHOD_FONEPAY))
	assert.Equal(s.T(), http.StatusBadGateway, w.Code)
	res := w.Body.String()
	assert.Equal(s.T(), "unpaid", gjson.Get(res, "booking.paymentStatus").String())
	assert.NotEmpty(s.T(), gjson.Get(res, "booking.bookingId").String())
}

func (s *TestSuite) TestVerifyFonePayNotSettled() {
	bookingID := s.createBooking(types.METHOD_FONEPAY)
	s.settled.Store(false)

	w := s.do("POST", "/api/v1/verify-payment", s.userToken, map[string]any{
		"bookingId":     bookingID,
		"transactionId": "FP-1",
		"paymentMethod": "fonepay",
	})
	assert.Equal(s.T(), http.StatusPaymentRequired, w.Code)

	s.settled.Store(true)
	w = s.do("POST", "/api/v1/verify-payment", s.userToken, map[string]any{
		"bookingId":     bookingID,
		"transactionId": "FP-1",
		"paymentMethod": "fonepay",
	})
	require.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "confirmed", gjson.Get(w.Body.String(), "booking.bookingStatus").String())
}

func (s *TestSuite) TestVerifyPhonePe() {
	bookingID := s.createBooking(types.METHOD_PHONEPE)

	s.Run("Should require a screenshot", func() {
		w := s.do("POST", "/api/v1/verify-payment", s.userToken, map[string]any{
			"bookingId":     bookingID,
			"transactionId": "PP-1",
			"paymentMethod": "phonepe",
		})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should mark the booking paid", func() {
		w := s.do("POST", "/api/v1/verify-payment", s.userToken, map[string]any{
			"bookingId":     bookingID,
			"transactionId": "PP-1",
			"screenshot":    "https://cdn.test/shot.png",
			"paymentMethod": "phonepe",
		})
		require.Equal(s.T(), http.StatusOK, w.Code)
		res := w.Body.String()
		assert.Equal(s.T(), "paid", gjson.Get(res, "booking.paymentStatus").String())
		assert.Equal(s.T(), "pending", gjson.Get(res, "booking.bookingStatus").String())
		assert.Equal(s.T(), "verified", gjson.Get(res, "payment.status").String())
	})

	s.Run("Should hide bookings of other users", func() {
		other, err := generateJWT(8, types.ROLE_USER)
		require.NoError(s.T(), err)
		w := s.do("POST", "/api/v1/verify-payment", other, map[string]any{
			"bookingId":     bookingID,
			"transactionId": "PP-1",
			"screenshot":    "shot",
			"paymentMethod": "phonepe",
		})
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})
}

func (s *TestSuite) TestAdminRoutes() {
	bookingID := s.createBooking(types.METHOD_PAY_LATER)

	w := s.do("GET", "/api/v1/bookings", s.adminToken, nil)
	require.Equal(s.T(), http.StatusOK, w.Code)
	res := w.Body.String()
	assert.Equal(s.T(), int64(1), gjson.Get(res, "count").Int())
	assert.Equal(s.T(), bookingID, gjson.Get(res, "data.0.bookingId").String())
	id := gjson.Get(res, "data.0.id").Int()
	url := fmt.Sprintf("/api/v1/bookings/%d", id)

	s.Run("Should refuse to confirm an unpaid booking", func() {
		w := s.do("PUT", url, s.adminToken, map[string]any{"bookingStatus": "confirmed"})
		assert.Equal(s.T(), http.StatusConflict, w.Code)
	})

	s.Run("Should reject an unknown status", func() {
		w := s.do("PUT", url, s.adminToken, map[string]any{"bookingStatus": "archived"})
		assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	})

	s.Run("Should cancel a booking", func() {
		w := s.do("PUT", url, s.adminToken, map[string]any{"bookingStatus": "cancelled", "message": "no show"})
		require.Equal(s.T(), http.StatusOK, w.Code)
		assert.Equal(s.T(), "cancelled", gjson.Get(w.Body.String(), "booking.bookingStatus").String())
		assert.Equal(s.T(), "no show", gjson.Get(w.Body.String(), "booking.message").String())
	})

	s.Run("Should return 404 for an unknown booking", func() {
		w := s.do("PUT", "/api/v1/bookings/9999", s.adminToken, map[string]any{"bookingStatus": "cancelled"})
		assert.Equal(s.T(), http.StatusNotFound, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	headerTestUser = "X-Test-User"
	headerTestRole = "X-Test-Role"
)

// testIdentity stands in for JWT auth: it trusts the test headers
func testIdentity(c *gin.Context) {
	if id := c.GetHeader(headerTestUser); id != "" {
		c.Set(middleware.ContextKeyUserID, id)
		role := c.GetHeader(headerTestRole)
		if role == "" {
			role = middleware.RoleGuest
		}
		c.Set(middleware.ContextKeyRole, role)
	}
	c.Next()
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
	Meta json.RawMessage `json:"meta"`
}

type testEnv struct {
	t        *testing.T
	router   *gin.Engine
	store    *repository.MemoryStore
	now      time.Time
	hotel    *domain.Hotel
	roomType *domain.RoomType
	rooms    []*domain.Room
}

func newTestEnv(t *testing.T, rooms int) *testEnv {
	t.Helper()
	ctx := context.Background()
	env := &testEnv{
		t:     t,
		store: repository.NewMemoryStore(),
		now:   time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	env.hotel = &domain.Hotel{Name: "Lakeview", City: "Udaipur", IsActive: true}
	require.NoError(t, env.store.Inventory.CreateHotel(ctx, env.hotel))
	env.roomType = &domain.RoomType{HotelID: env.hotel.ID, Name: "Deluxe", BasePrice: 2000, MaxOccupancy: 2, IsActive: true}
	require.NoError(t, env.store.Inventory.CreateRoomType(ctx, env.roomType))
	for i := 0; i < rooms; i++ {
		room := &domain.Room{
			HotelID:    env.hotel.ID,
			RoomTypeID: env.roomType.ID,
			RoomNumber: string(rune('1'+i)) + "01",
			Floor:      i + 1,
			IsActive:   true,
		}
		require.NoError(t, env.store.Inventory.CreateRoom(ctx, room))
		env.rooms = append(env.rooms, room)
	}

	cfg := &service.EngineConfig{
		GSTRate:                0.18,
		PaymentSessionWindow:   5 * time.Minute,
		Merchant:               domain.Merchant{ID: "lakeview@upi", Name: "Lakeview Hotel"},
		Currency:               "INR",
		CouponSingleUsePerUser: true,
		Now:                    func() time.Time { return env.now },
	}
	publisher := service.NewNoOpEventPublisher()
	availability := service.NewAvailabilityService(env.store.Inventory, env.store.Bookings)
	occupancy := service.NewOccupancyService(env.store.Inventory, env.store.Bookings)
	pricing := service.NewPricingService(env.store.Inventory, env.store.Pricing, occupancy, cfg)
	coupons := service.NewCouponService(env.store.Coupons, env.store.Inventory, cfg)
	bookings := service.NewBookingService(env.store.Bookings, env.store.Inventory, availability, pricing, coupons, publisher, cfg)
	payments := service.NewPaymentService(env.store.Payments, env.store.Bookings, nil, publisher, cfg)

	env.router = gin.New()
	RegisterRoutes(env.router.Group("/api/v1"), &Handlers{
		Pricing: NewPricingHandler(pricing, coupons, availability),
		Booking: NewBookingHandler(bookings),
		Payment: NewPaymentHandler(payments, bookings),
		Admin:   NewAdminHandler(pricing, coupons, bookings, occupancy),
	}, RouteMiddleware{Auth: testIdentity, OptionalAuth: testIdentity})
	return env
}

// do sends a request as userID with role; an empty userID is anonymous
func (e *testEnv) do(method, path, userID, role string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(headerTestUser, userID)
		req.Header.Set(headerTestRole, role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func (e *testEnv) bookingBody(in, out string) map[string]interface{} {
	return map[string]interface{}{
		"hotel_id":       e.hotel.ID,
		"room_type_id":   e.roomType.ID,
		"check_in_date":  in,
		"check_out_date": out,
		"guest_name":     "Asha Rao",
		"guest_email":    "asha@example.com",
		"guests":         2,
	}
}

func (e *testEnv) createBooking(userID, in, out string) map[string]interface{} {
	e.t.Helper()
	w, resp := e.do(http.MethodPost, "/api/v1/bookings", userID, "", e.bookingBody(in, out))
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	var booking map[string]interface{}
	require.NoError(e.t, json.Unmarshal(resp.Data, &booking))
	return booking
}

func (e *testEnv) addCoupon(c *domain.Coupon) {
	e.t.Helper()
	c.ValidFrom = e.now.AddDate(0, -1, 0)
	c.ValidUntil = e.now.AddDate(1, 0, 0)
	if c.DiscountType == "" {
		c.DiscountType = domain.DiscountPercentage
	}
	c.IsActive = true
	require.NoError(e.t, e.store.Coupons.Create(context.Background(), c))
}

func decode(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestPricingHandler_Quote(t *testing.T) {
	env := newTestEnv(t, 2)
	max := 300.0
	env.addCoupon(&domain.Coupon{Code: "SAVE10", DiscountValue: 10, MaxDiscount: &max})

	body := map[string]interface{}{
		"hotel_id":       env.hotel.ID,
		"room_type_id":   env.roomType.ID,
		"check_in_date":  "2030-06-01",
		"check_out_date": "2030-06-04",
	}

	w, resp := env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode(t, resp.Data)
	assert.Equal(t, float64(3), quote["nights"])
	assert.Equal(t, float64(6000), quote["subtotal"])
	assert.Equal(t, float64(7080), quote["total"])
	assert.Len(t, quote["daily"], 3)
	assert.Nil(t, quote["coupon"])

	body["coupon_code"] = "save10"
	w, resp = env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	quote = decode(t, resp.Data)
	assert.Equal(t, float64(300), quote["coupon_discount"])
	assert.Equal(t, float64(6726), quote["total"])
	assert.Equal(t, true, quote["coupon"].(map[string]interface{})["valid"])

	body["coupon_code"] = "NOPE"
	w, resp = env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	quote = decode(t, resp.Data)
	assert.Equal(t, float64(7080), quote["total"])
	coupon := quote["coupon"].(map[string]interface{})
	assert.Equal(t, false, coupon["valid"])
	assert.Equal(t, string(domain.CouponInvalidCode), coupon["reason"])
}

func TestPricingHandler_Quote_BadRequest(t *testing.T) {
	env := newTestEnv(t, 1)

	w, resp := env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", map[string]interface{}{"hotel_id": env.hotel.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)

	w, resp = env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", map[string]interface{}{
		"hotel_id":       env.hotel.ID,
		"room_type_id":   env.roomType.ID,
		"check_in_date":  "2030-13-01",
		"check_out_date": "2030-13-03",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "check_in_date", resp.Error.Details)
}

func TestPricingHandler_Availability(t *testing.T) {
	env := newTestEnv(t, 2)
	env.createBooking("u1", "2030-06-01", "2030-06-03")

	path := "/api/v1/availability?hotel_id=" + env.hotel.ID + "&room_type_id=" + env.roomType.ID +
		"&check_in_date=2030-06-02&check_out_date=2030-06-05"
	w, resp := env.do(http.MethodGet, path, "", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, resp.Data)
	assert.Equal(t, float64(1), data["available_rooms"])
	assert.Equal(t, true, data["is_available"])

	w, _ = env.do(http.MethodGet, "/api/v1/availability?hotel_id="+env.hotel.ID, "", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPricingHandler_ValidateCoupon(t *testing.T) {
	env := newTestEnv(t, 1)
	env.addCoupon(&domain.Coupon{Code: "BIG", DiscountValue: 10, MinBookingAmount: 5000})

	w, resp := env.do(http.MethodPost, "/api/v1/coupons/validate", "", "", map[string]interface{}{
		"code": "BIG", "hotel_id": env.hotel.ID, "booking_amount": 1000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, resp.Data)
	assert.Equal(t, false, data["valid"])
	assert.Equal(t, string(domain.CouponBelowMinimum), data["reason"])

	w, resp = env.do(http.MethodPost, "/api/v1/coupons/validate", "u1", "", map[string]interface{}{
		"code": "big", "hotel_id": env.hotel.ID, "booking_amount": 6000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, resp.Data)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, float64(600), data["discount_amount"])
}

func TestBookingHandler_CreateAndRead(t *testing.T) {
	env := newTestEnv(t, 2)

	w, resp := env.do(http.MethodPost, "/api/v1/bookings", "", "", env.bookingBody("2030-06-01", "2030-06-04"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)

	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")
	id := booking["id"].(string)
	assert.Equal(t, "PENDING", booking["status"])
	assert.Equal(t, "2030-06-01", booking["check_in_date"])
	assert.Equal(t, float64(7080), booking["price"].(map[string]interface{})["total"])

	w, _ = env.do(http.MethodGet, "/api/v1/bookings/"+id, "u1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// other guests cannot tell the booking exists
	w, resp = env.do(http.MethodGet, "/api/v1/bookings/"+id, "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	w, _ = env.do(http.MethodGet, "/api/v1/bookings/"+id, "desk-1", middleware.RoleStaff, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	env.createBooking("u1", "2030-07-01", "2030-07-02")
	w, resp = env.do(http.MethodGet, "/api/v1/bookings?page=1&page_size=1", "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Len(t, list, 1)
	meta := decode(t, resp.Meta)
	assert.Equal(t, float64(2), meta["total"])
	assert.Equal(t, float64(1), meta["page_size"])
}

func TestBookingHandler_Create_Errors(t *testing.T) {
	env := newTestEnv(t, 1)
	env.addCoupon(&domain.Coupon{Code: "HUGE", DiscountValue: 10, MinBookingAmount: 100000})

	env.createBooking("u1", "2030-06-01", "2030-06-04")

	w, resp := env.do(http.MethodPost, "/api/v1/bookings", "u2", "", env.bookingBody("2030-06-03", "2030-06-05"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NO_AVAILABILITY", resp.Error.Code)

	body := env.bookingBody("2030-07-01", "2030-07-03")
	body["coupon_code"] = "HUGE"
	w, resp = env.do(http.MethodPost, "/api/v1/bookings", "u2", "", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "COUPON_BELOW_MINIMUM", resp.Error.Code)
	assert.Equal(t, "HUGE", resp.Error.Details)

	body = env.bookingBody("2030-07-01", "2030-07-03")
	body["guests"] = 3
	w, resp = env.do(http.MethodPost, "/api/v1/bookings", "u2", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestBookingHandler_Cancel(t *testing.T) {
	env := newTestEnv(t, 1)
	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")
	id := booking["id"].(string)

	w, _ := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", "u1", "", map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, resp.Data)
	assert.Equal(t, "CANCELLED", data["status"])
	assert.Equal(t, "plans changed", data["cancellation_reason"])

	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", "u1", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
	assert.Equal(t, "CANCELLED", resp.Error.Details)

	// the room is free again
	env.createBooking("u2", "2030-06-01", "2030-06-04")
}

func TestPaymentHandler_SessionAndVerify(t *testing.T) {
	env := newTestEnv(t, 1)
	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")
	id := booking["id"].(string)

	w, _ := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/payment-session", "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/payment-session", "u1", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode(t, resp.Data)
	sessionID := session["id"].(string)
	assert.Equal(t, "PENDING", session["status"])
	assert.Equal(t, float64(7080), session["amount"])
	assert.Equal(t, float64(300), session["remaining_seconds"])
	assert.Contains(t, session["qr_payload"], "upi://pay")

	env.now = env.now.Add(2 * time.Minute)
	w, resp = env.do(http.MethodGet, "/api/v1/payment-sessions/"+sessionID, "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(180), decode(t, resp.Data)["remaining_seconds"])

	w, _ = env.do(http.MethodGet, "/api/v1/payment-sessions/"+sessionID, "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	verify := map[string]string{"external_transaction_id": "UTR-1", "method": "upi"}
	w, _ = env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionID+"/verify", "u1", "", verify)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionID+"/verify", "desk-1", middleware.RoleStaff, verify)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, resp.Data)
	assert.Equal(t, "CONFIRMED", result["booking"].(map[string]interface{})["status"])
	assert.Equal(t, "PAID", result["session"].(map[string]interface{})["status"])

	w, resp = env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionID+"/verify", "desk-1", middleware.RoleStaff, verify)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_VERIFIED", resp.Error.Code)

	w, resp = env.do(http.MethodGet, "/api/v1/bookings/"+id+"/payments", "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var payments []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "UTR-1", payments[0]["external_transaction_id"])
	assert.Equal(t, "desk-1", payments[0]["verified_by"])

	w, _ = env.do(http.MethodGet, "/api/v1/bookings/"+id+"/payments", "u2", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlers_RejectMalformedOptionalBody(t *testing.T) {
	env := newTestEnv(t, 1)
	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")
	id := booking["id"].(string)

	w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/payment-session", "u1", "", map[string]string{"amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)

	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/cancel", "u1", "", map[string]int{"reason": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)

	// nothing was created or cancelled
	w, resp = env.do(http.MethodGet, "/api/v1/bookings/"+id, "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PENDING", decode(t, resp.Data)["status"])

	// an empty body still means the booking total
	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/payment-session", "u1", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(7080), decode(t, resp.Data)["amount"])
}

func TestPaymentHandler_VerifyRejectsReusedTransaction(t *testing.T) {
	env := newTestEnv(t, 2)
	var sessionIDs []string
	for _, user := range []string{"u1", "u2"} {
		booking := env.createBooking(user, "2030-06-01", "2030-06-04")
		w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+booking["id"].(string)+"/payment-session", user, "", nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		sessionIDs = append(sessionIDs, decode(t, resp.Data)["id"].(string))
	}

	verify := map[string]string{"external_transaction_id": "UTR-ONE-SETTLEMENT", "method": "upi"}
	w, _ := env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionIDs[0]+"/verify", "desk-1", middleware.RoleStaff, verify)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp := env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionIDs[1]+"/verify", "desk-1", middleware.RoleStaff, verify)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "TRANSACTION_ALREADY_USED", resp.Error.Code)
	assert.Equal(t, "UTR-ONE-SETTLEMENT", resp.Error.Details)

	w, resp = env.do(http.MethodGet, "/api/v1/payment-sessions/"+sessionIDs[1], "u2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PENDING", decode(t, resp.Data)["status"])
}

func TestPaymentHandler_ExpiredSession(t *testing.T) {
	env := newTestEnv(t, 1)
	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")

	w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+booking["id"].(string)+"/payment-session", "u1", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, resp.Data)["id"].(string)

	env.now = env.now.Add(5*time.Minute + time.Second)
	w, resp = env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionID+"/verify", "desk-1", middleware.RoleStaff,
		map[string]string{"external_transaction_id": "UTR-late", "method": "upi"})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "SESSION_EXPIRED", resp.Error.Code)

	w, resp = env.do(http.MethodGet, "/api/v1/payment-sessions/"+sessionID, "u1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, resp.Data)
	assert.Equal(t, "EXPIRED", data["status"])
	assert.Equal(t, float64(0), data["remaining_seconds"])
}

func TestPaymentHandler_Sweep(t *testing.T) {
	env := newTestEnv(t, 2)
	for _, user := range []string{"u1", "u2"} {
		booking := env.createBooking(user, "2030-06-01", "2030-06-04")
		w, _ := env.do(http.MethodPost, "/api/v1/bookings/"+booking["id"].(string)+"/payment-session", user, "", nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	env.now = env.now.Add(10 * time.Minute)

	w, _ := env.do(http.MethodPost, "/api/v1/admin/payment-sessions/sweep", "u1", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := env.do(http.MethodPost, "/api/v1/admin/payment-sessions/sweep", "ops", middleware.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, resp.Data)["expired"])
}

func TestBookingHandler_FrontDesk(t *testing.T) {
	env := newTestEnv(t, 1)
	booking := env.createBooking("u1", "2030-06-01", "2030-06-04")
	id := booking["id"].(string)

	w, resp := env.do(http.MethodPost, "/api/v1/bookings/"+id+"/payment-session", "u1", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decode(t, resp.Data)["id"].(string)
	w, _ = env.do(http.MethodPost, "/api/v1/payment-sessions/"+sessionID+"/verify", "desk-1", middleware.RoleStaff,
		map[string]string{"external_transaction_id": "UTR-9", "method": "cash"})
	require.Equal(t, http.StatusOK, w.Code)

	checkIn := map[string]string{"room_id": env.rooms[0].ID}
	w, _ = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/check-in", "u1", "", checkIn)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/no-show", "desk-1", middleware.RoleStaff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	env.now = time.Date(2030, 6, 1, 14, 0, 0, 0, time.UTC)
	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/check-in", "desk-1", middleware.RoleStaff, checkIn)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CHECKED_IN", decode(t, resp.Data)["status"])

	w, resp = env.do(http.MethodGet, "/api/v1/admin/hotels/"+env.hotel.ID+"/rooms", "desk-1", middleware.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rooms []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "OCCUPIED", rooms[0]["status"])

	w, resp = env.do(http.MethodPost, "/api/v1/bookings/"+id+"/check-out", "desk-1", middleware.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "CHECKED_OUT", decode(t, resp.Data)["status"])

	w, resp = env.do(http.MethodPatch, "/api/v1/admin/rooms/"+env.rooms[0].ID+"/status", "desk-1", middleware.RoleStaff,
		map[string]string{"status": "available"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "AVAILABLE", decode(t, resp.Data)["status"])

	w, resp = env.do(http.MethodPatch, "/api/v1/admin/rooms/"+env.rooms[0].ID+"/status", "desk-1", middleware.RoleStaff,
		map[string]string{"status": "haunted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", resp.Error.Details)
}

func TestAdminHandler_PricingRules(t *testing.T) {
	env := newTestEnv(t, 1)
	path := "/api/v1/admin/hotels/" + env.hotel.ID + "/pricing-rules"

	rules := map[string]interface{}{
		"seasonal":  []interface{}{},
		"day_types": []map[string]interface{}{{"day_type": "WEEKEND", "multiplier": 1.5}},
		"occupancy": []interface{}{},
	}
	w, _ := env.do(http.MethodPut, path, "u1", "", rules)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = env.do(http.MethodPut, path, "ops", middleware.RoleAdmin, rules)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp := env.do(http.MethodGet, path, "ops", middleware.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := decode(t, resp.Data)
	assert.Len(t, stored["day_types"], 1)

	// Saturday and Sunday at 1.5x, Monday at base
	w, resp = env.do(http.MethodPost, "/api/v1/pricing/quote", "", "", map[string]interface{}{
		"hotel_id":       env.hotel.ID,
		"room_type_id":   env.roomType.ID,
		"check_in_date":  "2030-06-01",
		"check_out_date": "2030-06-04",
	})
	require.Equal(t, http.StatusOK, w.Code)
	quote := decode(t, resp.Data)
	assert.Equal(t, float64(8000), quote["subtotal"])
	assert.Equal(t, float64(9440), quote["total"])

	bad := map[string]interface{}{
		"occupancy": []map[string]interface{}{{"min_occupancy": 80, "max_occupancy": 20, "multiplier": 1.2}},
	}
	w, resp = env.do(http.MethodPut, path, "ops", middleware.RoleAdmin, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "occupancy[0]", resp.Error.Details)
}

func TestAdminHandler_Coupons(t *testing.T) {
	env := newTestEnv(t, 1)

	body := map[string]interface{}{
		"code":           "monsoon",
		"hotel_id":       env.hotel.ID,
		"discount_type":  "PERCENTAGE",
		"discount_value": 15,
		"valid_from":     env.now.Add(-time.Hour).Format(time.RFC3339),
		"valid_until":    env.now.AddDate(0, 3, 0).Format(time.RFC3339),
	}
	w, resp := env.do(http.MethodPost, "/api/v1/admin/coupons", "ops", middleware.RoleAdmin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	coupon := decode(t, resp.Data)
	assert.Equal(t, "MONSOON", coupon["code"])

	w, _ = env.do(http.MethodPost, "/api/v1/admin/coupons", "ops", middleware.RoleAdmin, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(http.MethodGet, "/api/v1/admin/coupons?hotel_id="+env.hotel.ID, "ops", middleware.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var coupons []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &coupons))
	assert.Len(t, coupons, 1)

	w, _ = env.do(http.MethodDelete, "/api/v1/admin/coupons/"+coupon["id"].(string), "ops", middleware.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(http.MethodPost, "/api/v1/coupons/validate", "", "", map[string]interface{}{
		"code": "MONSOON", "hotel_id": env.hotel.ID, "booking_amount": 5000,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(domain.CouponInvalidCode), decode(t, resp.Data)["reason"])
}

func TestAdminHandler_OccupancyReport(t *testing.T) {
	env := newTestEnv(t, 2)
	env.createBooking("u1", "2030-06-01", "2030-06-03")

	path := "/api/v1/admin/hotels/" + env.hotel.ID + "/occupancy?from=2030-06-01&to=2030-06-03"
	w, resp := env.do(http.MethodGet, path, "desk-1", middleware.RoleStaff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode(t, resp.Data)
	days := report["days"].([]interface{})
	require.Len(t, days, 2)
	assert.Equal(t, float64(50), days[0].(map[string]interface{})["occupancy_percent"])
	assert.Equal(t, float64(50), report["average_occupancy_percent"])

	w, resp = env.do(http.MethodGet, "/api/v1/admin/hotels/"+env.hotel.ID+"/occupancy?from=2030-06-01", "desk-1", middleware.RoleStaff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "to", resp.Error.Details)
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(map[string]HealthChecker{
		"database": fakeChecker{},
		"kafka":    nil,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	handler.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "not configured", ready.Components["kafka"])

	handler = NewHealthHandler(map[string]HealthChecker{"redis": fakeChecker{err: errors.New("connection refused")}})
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

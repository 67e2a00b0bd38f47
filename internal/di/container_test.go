package di

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/hotel-booking-engine/internal/gateway"
	"github.com/prohmpiriya/hotel-booking-engine/internal/handler"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			GSTRate:                0.18,
			PaymentSessionWindow:   5 * time.Minute,
			MerchantID:             "hotel@upi",
			MerchantName:           "Seaview Hotel",
			Currency:               "INR",
			CouponSingleUsePerUser: true,
		},
		Sweeper: config.SweeperConfig{
			Enabled:   true,
			Interval:  time.Minute,
			BatchSize: 50,
		},
	}
}

func TestEngineConfigFrom(t *testing.T) {
	engine := EngineConfigFrom(testConfig())

	assert.Equal(t, 0.18, engine.GSTRate)
	assert.Equal(t, 5*time.Minute, engine.PaymentSessionWindow)
	assert.Equal(t, "hotel@upi", engine.Merchant.ID)
	assert.Equal(t, "Seaview Hotel", engine.Merchant.Name)
	assert.Equal(t, "INR", engine.Currency)
	assert.True(t, engine.CouponSingleUsePerUser)
	assert.Equal(t, 50, engine.SweepBatchSize)
}

func TestSweeperConfigFrom(t *testing.T) {
	sweeper := SweeperConfigFrom(testConfig())

	assert.Equal(t, time.Minute, sweeper.Interval)
	// unset values keep their defaults
	assert.Equal(t, 50*time.Second, sweeper.LockTTL)
}

func TestNewVerifier_WithoutStripe(t *testing.T) {
	verifier := NewVerifier(testConfig())

	_, ok := verifier.(*gateway.Registry)
	assert.True(t, ok)
}

func TestNewContainer_InMemory(t *testing.T) {
	cfg := testConfig()
	c := NewContainer(&ContainerConfig{
		Verifier: NewVerifier(cfg),
		Engine:   EngineConfigFrom(cfg),
		Sweeper:  SweeperConfigFrom(cfg),
	})

	require.NotNil(t, c.InventoryRepo)
	require.NotNil(t, c.BookingRepo)
	require.NotNil(t, c.CouponRepo)
	require.NotNil(t, c.PricingRepo)
	require.NotNil(t, c.PaymentRepo)
	require.NotNil(t, c.PaymentService)
	require.NotNil(t, c.SessionSweeper)
	require.NotNil(t, c.Handlers)
	_, isNoOp := c.EventPublisher.(*service.NoOpEventPublisher)
	assert.True(t, isNoOp)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ready", c.HealthHandler.Ready)
	passthrough := func(c *gin.Context) { c.Next() }
	handler.RegisterRoutes(router.Group("/api/v1"), c.Handlers, handler.RouteMiddleware{
		Auth:         passthrough,
		OptionalAuth: passthrough,
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ready handler.ReadyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.Equal(t, "not configured", ready.Components["database"])
	assert.Equal(t, "not configured", ready.Components["redis"])
	assert.Equal(t, "not configured", ready.Components["kafka"])

	// sweeping an empty store expires nothing
	n, err := c.SessionSweeper.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

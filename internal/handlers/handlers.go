package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atharvakonge/coin-portfolio-tracker/internal/app"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/market"
	"github.com/atharvakonge/coin-portfolio-tracker/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API exposes the tracker over HTTP. Every state-changing request is run
// through the intent processor.
type API struct {
	tracker *app.Tracker
	proc    *IntentProcessor
	log     *slog.Logger
}

func NewAPI(tracker *app.Tracker, proc *IntentProcessor, log *slog.Logger) *API {
	return &API{tracker: tracker, proc: proc, log: log}
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(a *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(a.log))

	api := router.Group("/api")
	{
		api.POST("/login", a.Login)
		api.POST("/logout", a.Logout)
		api.GET("/session", a.GetSession)

		api.GET("/coins", a.GetCoins)
		api.POST("/coins/refresh", a.RefreshCoins)

		portfolio := api.Group("/portfolio", a.requireSession)
		portfolio.GET("", a.GetPortfolio)
		portfolio.POST("", a.AddItem)
		portfolio.PATCH("/:coinId", a.UpdateItem)
		portfolio.DELETE("/:coinId", a.RemoveItem)
	}

	router.GET("/ws/prices", a.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// Login handles POST /api/login
func (a *API) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := a.submit(c, "login", func(ctx context.Context) (any, error) {
		return a.tracker.Auth.Login(ctx, req.Username, req.Password)
	})
	if err != nil {
		a.fail(c, err)
		return
	}

	sess := v.(models.Session)
	c.JSON(http.StatusOK, gin.H{
		"token":           sess.Token,
		"isAuthenticated": sess.IsAuthenticated,
	})
}

// Logout handles POST /api/logout. While a session is active only its own
// bearer token may end it; without one the call is a no-op.
func (a *API) Logout(c *gin.Context) {
	if a.tracker.State.Session().IsAuthenticated && !a.validBearer(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}

	_, err := a.submit(c, "logout", func(ctx context.Context) (any, error) {
		a.tracker.Auth.Logout(ctx)
		return nil, nil
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetSession handles GET /api/session
func (a *API) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": a.tracker.State.Session().IsAuthenticated})
}

// GetCoins handles GET /api/coins
func (a *API) GetCoins(c *gin.Context) {
	c.JSON(http.StatusOK, a.coinsResponse())
}

// RefreshCoins handles POST /api/coins/refresh. It does not move the
// polling timer.
func (a *API) RefreshCoins(c *gin.Context) {
	_, err := a.submit(c, "refresh", func(ctx context.Context) (any, error) {
		return a.tracker.Prices.RefreshOnce(ctx)
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a.coinsResponse())
}

// GetPortfolio handles GET /api/portfolio
func (a *API) GetPortfolio(c *gin.Context) {
	items := a.tracker.Portfolio.Items()
	if items == nil {
		items = []models.PortfolioItem{}
	}
	total := models.TotalValue(items)

	c.JSON(http.StatusOK, models.PortfolioResponse{
		Items:             items,
		TotalValue:        total,
		TotalValueDisplay: models.FormatUSD(total),
	})
}

// AddItem handles POST /api/portfolio
func (a *API) AddItem(c *gin.Context) {
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := a.submit(c, "add", func(ctx context.Context) (any, error) {
		coin, err := a.tracker.Prices.Coin(req.CoinID)
		if err != nil {
			return nil, err
		}
		return a.tracker.Portfolio.Add(ctx, coin, req.Quantity)
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// UpdateItem handles PATCH /api/portfolio/:coinId
func (a *API) UpdateItem(c *gin.Context) {
	coinID := c.Param("coinId")

	var req models.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := a.submit(c, "update", func(ctx context.Context) (any, error) {
		return a.tracker.Portfolio.UpdateQuantity(ctx, coinID, req.Delta)
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RemoveItem handles DELETE /api/portfolio/:coinId
func (a *API) RemoveItem(c *gin.Context) {
	coinID := c.Param("coinId")

	_, err := a.submit(c, "remove", func(ctx context.Context) (any, error) {
		return nil, a.tracker.Portfolio.Remove(ctx, coinID)
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed", "coinId": coinID})
}

// requireSession rejects requests without the current session's bearer token.
func (a *API) requireSession(c *gin.Context) {
	if !a.validBearer(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}
	c.Next()
}

func (a *API) validBearer(c *gin.Context) bool {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	return ok && a.tracker.Auth.Validate(strings.TrimSpace(token))
}

// submit runs fn on the intent processor. Storage errors never reach the
// client: the in-memory change stands and the failure is only logged.
func (a *API) submit(c *gin.Context, name string, fn func(ctx context.Context) (any, error)) (any, error) {
	v, err := a.proc.Submit(c.Request.Context(), name, fn)
	if err != nil && app.IsStorageError(err) {
		a.log.Warn("storage failure absorbed", slog.String("intent", name), slog.Any("error", err))
		return v, nil
	}
	return v, err
}

func (a *API) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()

	var fe *market.FetchError
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	var fe *market.FetchError
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrNonPositiveQuantity):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrItemNotFound), errors.Is(err, app.ErrUnknownCoin):
		return http.StatusNotFound
	case errors.As(err, &fe):
		return http.StatusBadGateway
	case errors.Is(err, ErrProcessorStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) coinsResponse() models.CoinsResponse {
	snap := a.tracker.State.Snapshot()
	resp := models.CoinsResponse{Coins: snap.Coins, LastError: snap.LastError}
	if resp.Coins == nil {
		resp.Coins = []models.Coin{}
	}
	if !snap.LastUpdated.IsZero() {
		at := snap.LastUpdated
		resp.LastUpdated = &at
	}
	return resp
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"click-collect/internal/cart"
	"click-collect/internal/service"
	"click-collect/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientIDHeader identifies the browser a request comes from
const ClientIDHeader = "X-Client-ID"

const storefrontKey = "storefront"

// Handler contains HTTP handlers
type Handler struct {
	shop  *service.Registry
	track *service.Registry
}

// NewHandler creates a new HTTP handler
func NewHandler(shop, track *service.Registry) *Handler {
	return &Handler{
		shop:  shop,
		track: track,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		shop := v1.Group("/shop", clientMiddleware(h.shop))
		h.registerCartRoutes(shop)
		shop.GET("/session", h.getSession)
		shop.POST("/session", h.signIn)
		shop.DELETE("/session", h.signOut)
		shop.GET("/account/orders", h.accountOrders)

		track := v1.Group("/track", clientMiddleware(h.track))
		h.registerCartRoutes(track)
		track.POST("/lookup", h.lookup)
		track.GET("/orders", h.trackedOrders)
	}
}

// registerCartRoutes mounts the catalog, cart and checkout routes shared by
// both pages
func (h *Handler) registerCartRoutes(g *gin.RouterGroup) {
	g.GET("/products", h.listProducts)
	g.GET("/cart", h.getCart)
	g.POST("/cart/items", h.addItem)
	g.PUT("/cart/items/:id", h.setQuantity)
	g.DELETE("/cart/items/:id", h.removeItem)
	g.POST("/checkout", h.checkout)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"time":     time.Now().Unix(),
		"sessions": gin.H{"shop": h.shop.Len(), "track": h.track.Len()},
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type signInRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// listProducts renders the catalog
func (h *Handler) listProducts(c *gin.Context) {
	sf := storefrontFrom(c)
	view, err := sf.Catalog(c.Request.Context(), c.Query("q"), c.Query("sort"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// getCart returns the cart with its totals
func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, storefrontFrom(c).Cart(c.Request.Context()))
}

// addItem adds one unit of a product
func (h *Handler) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	view, err := storefrontFrom(c).AddItem(c.Request.Context(), req.ProductID)
	if err != nil {
		writeCartError(c, err, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// setQuantity changes the quantity of a cart line
func (h *Handler) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	view, err := storefrontFrom(c).SetQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err != nil {
		writeCartError(c, err, view)
		return
	}
	c.JSON(http.StatusOK, view)
}

// removeItem removes a cart line
func (h *Handler) removeItem(c *gin.Context) {
	c.JSON(http.StatusOK, storefrontFrom(c).RemoveItem(c.Request.Context(), c.Param("id")))
}

// checkout places an order from the cart
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	conf, err := storefrontFrom(c).Checkout(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conf)
}

// getSession returns the signed-in client
func (h *Handler) getSession(c *gin.Context) {
	session := storefrontFrom(c).Session()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":    session,
		"first_name": session.FirstName(),
	})
}

// signIn opens a client session
func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	res, err := storefrontFrom(c).SignIn(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// signOut closes the client session
func (h *Handler) signOut(c *gin.Context) {
	if err := storefrontFrom(c).SignOut(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// accountOrders lists the signed-in client's orders
func (h *Handler) accountOrders(c *gin.Context) {
	orders, err := storefrontFrom(c).AccountOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"empty":  len(orders) == 0,
	})
}

// lookup finds an order by reference and email
func (h *Handler) lookup(c *gin.Context) {
	var req service.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	order, err := storefrontFrom(c).Lookup(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// trackedOrders lists the client's tracked order summaries
func (h *Handler) trackedOrders(c *gin.Context) {
	orders, err := storefrontFrom(c).TrackedOrders()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// clientMiddleware resolves the caller's storefront from the client id
// header, issuing a new id when none is sent.
func clientMiddleware(registry *service.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(ClientIDHeader)
		if clientID == "" {
			clientID = uuid.New().String()
		} else if _, err := uuid.Parse(clientID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_client_id",
				"details": err.Error(),
			})
			return
		}

		c.Header(ClientIDHeader, clientID)
		c.Set(storefrontKey, registry.Get(c.Request.Context(), clientID))
		c.Next()
	}
}

func storefrontFrom(c *gin.Context) *service.Storefront {
	return c.MustGet(storefrontKey).(*service.Storefront)
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"details": err.Error(),
	})
}

func writeCartError(c *gin.Context, err error, view service.CartView) {
	status, body := errorResponse(err)
	body["cart"] = view
	c.JSON(status, body)
}

func writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	c.JSON(status, body)
}

// errorResponse maps domain errors to a status and a body carrying a stable
// code and the message shown to the customer.
func errorResponse(err error) (int, gin.H) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"field":   verr.Field,
			"message": "Merci de renseigner vos informations.",
			"details": verr.Error(),
		}
	case errors.Is(err, cart.ErrStockLimit), errors.Is(err, cart.ErrExceedsStock):
		return http.StatusConflict, gin.H{
			"error":   "stock_limit",
			"message": "Stock maximal atteint pour ce produit.",
			"details": err.Error(),
		}
	case errors.Is(err, cart.ErrOutOfStock):
		return http.StatusConflict, gin.H{
			"error":   "out_of_stock",
			"message": "Produit indisponible.",
			"details": err.Error(),
		}
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, gin.H{
			"error":   "empty_cart",
			"message": "Votre panier est vide.",
		}
	case errors.Is(err, service.ErrLoginRequired):
		return http.StatusUnauthorized, gin.H{
			"error":   "login_required",
			"message": "Identifiez-vous pour continuer.",
		}
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, gin.H{
			"error":   "order_not_found",
			"message": "Aucune commande ne correspond à ces informations.",
		}
	case errors.Is(err, cart.ErrUnknownProduct), errors.Is(err, cart.ErrNotInCart):
		return http.StatusNotFound, gin.H{
			"error":   "product_not_found",
			"details": err.Error(),
		}
	case errors.Is(err, service.ErrNotSupported):
		return http.StatusNotFound, gin.H{
			"error":   "not_supported",
			"details": err.Error(),
		}
	case errors.Is(err, service.ErrOrderNotSaved), errors.Is(err, service.ErrReferenceSpace):
		return http.StatusServiceUnavailable, gin.H{
			"error":   "order_not_saved",
			"message": "Votre commande n'a pas pu être enregistrée, votre panier est conservé.",
			"details": err.Error(),
		}
	}
	return http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"details": err.Error(),
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

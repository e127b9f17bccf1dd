package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/export"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/infra/payments"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/assign"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/wallet"
)

const maxWebhookBody = 1 << 16

const dateLayout = "2006-01-02"

type handlers struct {
	Deps
}

func (h *handlers) requireAdmin(c *gin.Context) {
	if h.AdminToken == "" || c.GetHeader("X-Admin-Token") != h.AdminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
	}
}

// fail maps service errors onto HTTP statuses with the specific reason.
func (h *handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrNotFound),
		errors.Is(err, catalog.ErrServiceNotFound),
		errors.Is(err, catalog.ErrAccountNotFound),
		errors.Is(err, subscriptions.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, assign.ErrInvalidRequest),
		errors.Is(err, dwallet.ErrUnknownBundle),
		errors.Is(err, dwallet.ErrMalformedReference):
		status = http.StatusBadRequest
	case errors.Is(err, users.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, assign.ErrNoCapacity),
		errors.Is(err, assign.ErrExpiryExceeded):
		status = http.StatusConflict
	case errors.Is(err, payments.ErrUnavailable):
		status = http.StatusBadGateway
	default:
		h.Log.Error("request failed", "err", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// --- subscriptions ---

type assignRequest struct {
	Username string `json:"username" binding:"required"`
	Service  *struct {
		Name        string `json:"name"`
		DurationKey string `json:"duration"`
	} `json:"service"`
	Account *struct {
		Ref         string `json:"ref"`
		AccountID   int64  `json:"account_id"`
		ServiceName string `json:"service_name"`
		EndDate     string `json:"end_date"`
	} `json:"account"`
}

func (h *handlers) assignSubscription(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sreq := assign.Request{Username: req.Username}
	if req.Service != nil {
		sreq.Service = &assign.ServiceSelector{Name: req.Service.Name, DurationKey: req.Service.DurationKey}
	}
	if req.Account != nil {
		end, err := time.Parse(dateLayout, req.Account.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		sel := &assign.AccountSelector{EndDate: end}
		switch {
		case req.Account.Ref != "":
			sel.Kind = assign.ByExternalRef
			sel.ExternalRef = req.Account.Ref
		case req.Account.AccountID > 0:
			sel.Kind = assign.ByAccountID
			sel.AccountID = req.Account.AccountID
		case req.Account.ServiceName != "":
			sel.Kind = assign.ByServiceName
			sel.ServiceName = req.Account.ServiceName
		}
		sreq.Account = sel
	}

	res, err := h.Assignor.Assign(c.Request.Context(), sreq)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cost":            res.Cost,
		"end_date":        res.EndDate.Format(dateLayout),
		"account_ref":     res.AccountRef,
		"subscription_id": res.SubscriptionID,
		"created":         res.Created,
	})
}

func (h *handlers) removeSubscription(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}
	if err := h.Subs.Remove(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listSubscriptions(c *gin.Context) {
	user, err := h.Users.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		h.fail(c, err)
		return
	}
	subs, err := h.Subs.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(subs))
	for _, s := range subs {
		out = append(out, gin.H{
			"service_id":   s.ServiceID,
			"started_at":   s.StartedAt.Format(dateLayout),
			"expires_at":   s.ExpiresAt.Format(dateLayout),
			"active":       s.Active,
			"duration_key": s.DurationKey,
			"total_days":   s.TotalDurationDays,
		})
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": out})
}

// --- wallet ---

func (h *handlers) handleWebhook(c *gin.Context) {
	provider := c.Param("provider")
	// the manual provider carries no signature, so only the admin may use it
	if provider == wallet.ProviderManual {
		if h.AdminToken == "" || c.GetHeader("X-Admin-Token") != h.AdminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	receipt, err := h.Wallet.HandleWebhook(c.Request.Context(), provider, body, c.Request.Header)
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		case wallet.Retryable(err):
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider unavailable"})
		default:
			// business rejection: flagged internally, success to the provider
			// so it stops redelivering
			c.JSON(http.StatusOK, gin.H{"ok": true})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "applied": receipt.Applied, "duplicate": receipt.Duplicate})
}

type topUpRequest struct {
	Provider string `json:"provider" binding:"required"`
	Username string `json:"username" binding:"required"`
	Bundle   string `json:"bundle" binding:"required"`
}

func (h *handlers) createTopUpOrder(c *gin.Context) {
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	order, err := h.Wallet.CreateTopUpOrder(c.Request.Context(), req.Provider, req.Username, req.Bundle)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"provider":    order.Provider,
		"reference":   order.Reference,
		"order_id":    order.OrderID,
		"payment_url": order.PaymentURL,
	})
}

func (h *handlers) capturePayPal(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	receipt, err := h.Wallet.CapturePayPal(c.Request.Context(), req.OrderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"applied":   receipt.Applied,
		"duplicate": receipt.Duplicate,
		"credits":   receipt.Credits,
	})
}

func (h *handlers) getWallet(c *gin.Context) {
	username := c.Param("username")
	user, err := h.Users.GetByUsername(c.Request.Context(), username)
	if err != nil {
		h.fail(c, err)
		return
	}
	events, err := h.Journal.ListByUsername(c.Request.Context(), username, 20)
	if err != nil {
		h.fail(c, err)
		return
	}
	history := make([]gin.H, 0, len(events))
	for _, e := range events {
		history = append(history, gin.H{
			"provider": e.Provider,
			"bundle":   e.BundleID,
			"usd":      e.USDAmount,
			"credits":  e.Credits,
			"status":   e.Status,
			"at":       e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"username": username, "credits": user.Credits, "history": history})
}

// --- admin ---

func (h *handlers) listUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	list, err := h.Users.List(c.Request.Context(), (page-1)*limit, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, u := range list {
		out = append(out, gin.H{"id": u.ID, "username": u.Username, "email": u.Email, "credits": u.Credits})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "page": page, "limit": limit})
}

func (h *handlers) createService(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	svc, err := h.Catalog.CreateService(c.Request.Context(), req.Name, req.Image)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": svc.ID, "name": svc.Name})
}

func (h *handlers) listServices(c *gin.Context) {
	list, err := h.Catalog.ListServices(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, s := range list {
		out = append(out, gin.H{"id": s.ID, "name": s.Name, "image": s.Image, "active": s.Active})
	}
	c.JSON(http.StatusOK, gin.H{"services": out})
}

func (h *handlers) createAccount(c *gin.Context) {
	var req struct {
		Ref       string `json:"ref" binding:"required"`
		ExpiresAt string `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	svc, err := h.Catalog.GetServiceByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var expires *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(dateLayout, req.ExpiresAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be YYYY-MM-DD"})
			return
		}
		expires = &t
	}
	acc, err := h.Catalog.CreateAccount(c.Request.Context(), svc.ID, req.Ref, expires)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": acc.ID, "ref": acc.AccountRef})
}

func (h *handlers) setDurationCredit(c *gin.Context) {
	var req struct {
		Credits int `json:"credits" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	svc, err := h.Catalog.GetServiceByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Catalog.SetDurationCredit(c.Request.Context(), svc.ID, c.Param("key"), req.Credits); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) exportSubscriptions(c *gin.Context) {
	rows, err := h.Subs.ListReport(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	buf, err := export.SubscriptionsReport(rows)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="subscriptions.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

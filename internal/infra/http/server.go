// Package http wires the gin API surface: subscription assignment, wallet
// top-ups and webhooks, and the admin catalog endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/catalog"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/subscriptions"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/users"
	dwallet "github.com/Hitanshu08/percy-ecomm-sub000/internal/domain/wallet"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/assign"
	"github.com/Hitanshu08/percy-ecomm-sub000/internal/service/wallet"
)

type Deps struct {
	Log        *slog.Logger
	AdminToken string

	Assignor *assign.Service
	Wallet   *wallet.Processor

	Users   *users.Repo
	Subs    *subscriptions.Repo
	Catalog *catalog.Repo
	Journal *dwallet.JournalRepo

	MetricsEnabled bool
}

type Server struct {
	srv *http.Server
}

func New(addr string, env string, d Deps) *Server {
	if env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	h := &handlers{Deps: d}

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	if d.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/webhooks/:provider", h.handleWebhook)
		api.POST("/wallet/orders", h.createTopUpOrder)
		api.POST("/wallet/paypal/capture", h.capturePayPal)
		api.GET("/users/:username/wallet", h.getWallet)
		api.GET("/users/:username/subscriptions", h.listSubscriptions)

		admin := api.Group("/admin", h.requireAdmin)
		{
			admin.POST("/subscriptions/assign", h.assignSubscription)
			admin.DELETE("/subscriptions/:id", h.removeSubscription)
			admin.GET("/users", h.listUsers)
			admin.POST("/services", h.createService)
			admin.GET("/services", h.listServices)
			admin.POST("/services/:name/accounts", h.createAccount)
			admin.PUT("/services/:name/durations/:key", h.setDurationCredit)
			admin.GET("/reports/subscriptions.xlsx", h.exportSubscriptions)
		}
	}

	return &Server{srv: &http.Server{Addr: addr, Handler: r}}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

package server

import (
	"net/http"

	"interior-ledger/internal/config"
	"interior-ledger/internal/handlers"
	"interior-ledger/internal/middleware"
	"interior-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the long-lived collaborators the routes are bound to.
type Deps struct {
	Ledger *handlers.Ledger
	Proofs handlers.ProofOpener
	// nil when Redis is not configured
	Events handlers.EventSubscriber
	Log    *zap.Logger
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Log))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("ledger_session", store))

	r.Use(middleware.InjectUser())

	// AUTH
	r.POST("/register", handlers.Register)
	r.POST("/login", handlers.Login)
	r.GET("/logout", handlers.Logout)

	// ссылка подписана, сессия не нужна
	r.GET("/files", handlers.DownloadProof(deps.Proofs, deps.Log))

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.GET("/me", handlers.Me)

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	money := middleware.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleAccounts)

	// КЛИЕНТЫ
	auth.GET("/clients", handlers.ListClients)
	auth.POST("/clients", staff, handlers.CreateClient)
	auth.GET("/clients/:id", handlers.ShowClient)
	auth.PUT("/clients/:id", staff, handlers.UpdateClient)

	// ПРОЕКТЫ
	auth.GET("/projects", handlers.ListProjects)
	auth.POST("/projects", staff, handlers.CreateProject)
	auth.GET("/projects/:id", handlers.ShowProject)
	auth.PUT("/projects/:id", staff, handlers.UpdateProject)
	auth.DELETE("/projects/:id", middleware.RequireRole(models.RoleAdmin), handlers.DeleteProject)
	auth.POST("/projects/:id/status", handlers.ChangeProjectStatus)
	auth.GET("/projects/:id/history", handlers.ShowProjectHistory)

	// ОПЛАТЫ: права по ролям проверяет payments.Service
	auth.PUT("/projects/:id/cost", deps.Ledger.SetCost)
	auth.GET("/projects/:id/ledger", deps.Ledger.Show)
	auth.GET("/projects/:id/ledger/export", deps.Ledger.Export)
	auth.GET("/projects/:id/ledger/live", handlers.LiveLedger(deps.Events, deps.Log))
	auth.POST("/projects/:id/payments", deps.Ledger.RecordPayment)
	auth.DELETE("/payments/:id", deps.Ledger.ReversePayment)

	// ДОПОЛНИТЕЛЬНЫЕ РАБОТЫ
	auth.POST("/projects/:id/extra-work", deps.Ledger.AddExtraWork)
	auth.DELETE("/extra-work/:id", deps.Ledger.DeleteExtraWork)
	auth.POST("/extra-work/:id/payments", deps.Ledger.RecordExtraWorkPayment)
	auth.DELETE("/extra-work-payments/:id", deps.Ledger.ReverseExtraWorkPayment)

	auth.GET("/dashboard/totals", money, deps.Ledger.Totals)

	// АУДИТ
	auth.GET("/audit",
		middleware.RequireRole(models.RoleAdmin, models.RoleViewer),
		handlers.ListAuditLogs,
	)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}

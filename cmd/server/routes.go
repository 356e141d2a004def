package main

import (
	"gunes-backend/internal/admin"
	"gunes-backend/internal/audit"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/config"
	"gunes-backend/internal/customer"
	"gunes-backend/internal/dashboard"
	"gunes-backend/internal/delivery"
	"gunes-backend/internal/exchange"
	"gunes-backend/internal/hr"
	"gunes-backend/internal/inventory"
	"gunes-backend/internal/kvkk"
	"gunes-backend/internal/models"
	"gunes-backend/internal/nextstep"
	"gunes-backend/internal/notification"
	"gunes-backend/internal/partner"
	"gunes-backend/internal/photo"
	"gunes-backend/internal/quote"
	"gunes-backend/internal/ratelimit"
	"gunes-backend/internal/solar"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type routeDeps struct {
	cfg      *config.Config
	clk      clock.Clock
	store    photo.Storage
	registry *delivery.Registry
	solar    *solar.Client
	tcmb     *exchange.Client
	checker  *kvkk.Checker
	limiter  ratelimit.Limiter
}

func registerRoutes(app *fiber.App, d routeDeps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public
	api.Post("/auth/register", auth.RegisterHandler())
	api.Post("/auth/login", auth.LoginHandler(d.cfg.JWTSecret))

	public := api.Group("/public")
	public.Post("/kvkk/applications", kvkk.CreateApplicationHandler(d.cfg.KVKKResponseDays, d.clk))
	public.Post("/project-requests", nextstep.PublicCreateHandler(d.clk))
	public.Post("/partner-requests", partner.CreateLeadHandler(d.clk))
	public.Get("/partners/:id/reviews", partner.ListReviewsHandler())
	public.Post("/partners/:id/reviews", partner.CreateReviewHandler())
	public.Get("/quotes/:token", quote.PublicViewHandler(d.clk))
	public.Post("/quotes/:token/respond", quote.PublicRespondHandler(d.clk))
	public.Get("/photo-requests/:token", photo.PublicGetHandler(d.clk))
	public.Post("/photo-requests/:token/uploads", photo.PublicUploadHandler(d.store, d.clk, photo.MaxUploadSize))

	api.Get("/exchange-rates/active", exchange.ActiveHandler())
	api.Get("/exchange-rates/convert", exchange.ConvertHandler())

	// Protected
	protected := api.Group("", auth.JWTMiddleware(d.cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())

	protected.Get("/notifications", notification.ListHandler())
	protected.Put("/notifications/read-all", notification.MarkAllReadHandler())
	protected.Put("/notifications/:id/read", notification.MarkReadHandler())

	// Platform yöneticisi
	adminRoutes := protected.Group("/admin", auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", auth.CreateUserHandler())
	adminRoutes.Get("/users", auth.ListUsersHandler())
	adminRoutes.Put("/users/:id/active", admin.SetUserActiveHandler())

	adminRoutes.Post("/companies", admin.CreateCompanyHandler())
	adminRoutes.Get("/companies", admin.ListCompaniesHandler())
	adminRoutes.Get("/companies/:id", admin.GetCompanyHandler())
	adminRoutes.Put("/companies/:id", admin.UpdateCompanyHandler())
	adminRoutes.Delete("/companies/:id", admin.DeleteCompanyHandler())
	adminRoutes.Post("/companies/:id/users", admin.CreateCompanyUserHandler())
	adminRoutes.Get("/companies/:id/users", admin.ListCompanyUsersHandler())

	adminRoutes.Get("/kvkk/applications", kvkk.ListApplicationsHandler(d.clk))
	adminRoutes.Get("/kvkk/applications/:id", kvkk.GetApplicationHandler(d.clk))
	adminRoutes.Put("/kvkk/applications/:id/status", kvkk.UpdateStatusHandler(d.clk))
	adminRoutes.Get("/kvkk/compliance", kvkk.ComplianceHandler(d.clk))
	adminRoutes.Post("/kvkk/run-checks", kvkk.RunChecksHandler(d.checker))

	adminRoutes.Post("/partners", partner.CreatePartnerHandler())
	adminRoutes.Get("/partners", partner.ListPartnersHandler())
	adminRoutes.Put("/partners/:id", partner.UpdatePartnerHandler())
	adminRoutes.Put("/partners/:id/verify", partner.VerifyPartnerHandler())
	adminRoutes.Get("/partner-requests", partner.ListLeadsHandler())
	adminRoutes.Post("/partner-requests/:id/route", partner.RerouteLeadHandler(d.clk))
	adminRoutes.Get("/commissions", partner.ListCommissionsHandler())
	adminRoutes.Put("/commissions/:id/pay", partner.PayCommissionHandler(d.clk))

	adminRoutes.Post("/exchange-rates", exchange.CreateManualHandler(d.clk))
	adminRoutes.Put("/exchange-rates/bulk", exchange.BulkUpdateHandler(d.clk))
	adminRoutes.Get("/exchange-rates", exchange.ListHandler())
	adminRoutes.Post("/exchange-rates/sync", exchange.SyncHandler(d.tcmb))

	// Firma sahibi ve çalışanları (admin her firmaya erişir)
	staff := protected.Group("", auth.RequireRole(models.RoleAdmin, models.RoleCompany, models.RoleEmployee))

	staff.Get("/dashboard/summary", dashboard.SummaryHandler(d.clk))
	staff.Get("/dashboard/quote-chart", dashboard.QuoteChartHandler(d.clk))

	staff.Post("/customers", customer.CreateHandler())
	staff.Get("/customers", customer.ListHandler())
	staff.Get("/customers/:id", customer.GetHandler())
	staff.Put("/customers/:id", customer.UpdateHandler())

	staff.Post("/projects", customer.CreateProjectHandler())
	staff.Get("/projects", customer.ListProjectsHandler())
	staff.Get("/projects/:id", customer.GetProjectHandler())
	staff.Put("/projects/:id", customer.UpdateProjectHandler())

	staff.Post("/project-requests", nextstep.CreateHandler(d.clk))
	staff.Get("/project-requests", nextstep.ListHandler(d.clk))
	staff.Get("/project-requests/next-steps", nextstep.NextStepsHandler(d.clk))
	staff.Get("/project-requests/:id", nextstep.GetHandler(d.clk))
	staff.Get("/project-requests/:id/next-steps", nextstep.RequestNextStepsHandler(d.clk))
	staff.Put("/project-requests/:id", nextstep.UpdateHandler(d.clk))
	staff.Put("/project-requests/:id/status", nextstep.UpdateStatusHandler(d.clk))
	staff.Delete("/project-requests/:id", nextstep.DeleteHandler())

	staff.Get("/products", inventory.ListProductsHandler())
	staff.Post("/products", inventory.CreateProductHandler())
	staff.Put("/products/:id", inventory.UpdateProductHandler())
	staff.Delete("/products/:id", inventory.DeleteProductHandler())
	staff.Get("/packages", inventory.ListPackagesHandler())
	staff.Get("/packages/:id", inventory.GetPackageHandler())
	staff.Post("/packages", inventory.CreatePackageHandler())
	staff.Put("/packages/:id", inventory.UpdatePackageHandler())
	staff.Delete("/packages/:id", inventory.DeletePackageHandler())

	staff.Post("/quotes", quote.CreateHandler(d.clk))
	staff.Get("/quotes", quote.ListHandler(d.clk))
	staff.Get("/quotes/analytics", quote.AnalyticsHandler(d.clk))
	staff.Get("/quotes/export", quote.ExportHandler(d.clk))
	staff.Get("/quotes/:id", quote.GetHandler(d.clk))
	staff.Put("/quotes/:id", quote.UpdateHandler(d.clk))
	staff.Delete("/quotes/:id", quote.DeleteHandler())
	staff.Get("/quotes/:id/pdf", quote.PDFHandler(d.clk))
	staff.Post("/quotes/:id/send",
		ratelimit.Middleware(d.limiter, "quote_send", ratelimit.ByUser),
		quote.SendHandler(d.registry, d.cfg.PublicBaseURL, d.clk),
	)

	staff.Post("/photo-requests", photo.CreateHandler(d.cfg.PublicBaseURL, d.clk))
	staff.Get("/photo-requests", photo.ListHandler(d.cfg.PublicBaseURL))
	staff.Get("/photo-requests/:id", photo.GetHandler(d.cfg.PublicBaseURL))
	staff.Get("/photo-requests/:id/uploads/:uploadId/file", photo.DownloadHandler(d.store))

	staff.Get("/solar/estimate", solar.EstimateHandler(d.solar))

	staff.Get("/audit-logs", audit.ListAuditLogsHandler())

	// İnsan kaynakları: çalışanın kendi işlemleri
	hrRoutes := staff.Group("/hr")
	hrRoutes.Get("/me/leave-balance", hr.MyLeaveBalanceHandler(d.clk))
	hrRoutes.Get("/employees/:id/leave-balance", hr.LeaveBalanceHandler(d.clk))
	hrRoutes.Post("/leave-requests", hr.CreateLeaveRequestHandler(d.clk))
	hrRoutes.Get("/leave-requests", hr.ListLeaveRequestsHandler())
	hrRoutes.Put("/leave-requests/:id/cancel", hr.CancelLeaveRequestHandler(d.clk))
	hrRoutes.Post("/time-entries/clock-in", hr.ClockInHandler(d.clk))
	hrRoutes.Post("/time-entries/clock-out", hr.ClockOutHandler(d.clk))
	hrRoutes.Get("/time-entries", hr.ListTimeEntriesHandler())

	// Çözüm ortağı firma paneli
	partnerRoutes := protected.Group("/partner", auth.RequireRole(models.RoleCompany))
	partnerRoutes.Get("/me", partner.MeHandler())
	partnerRoutes.Get("/leads", partner.ListLeadsHandler())
	partnerRoutes.Put("/leads/:id/accept", partner.AcceptLeadHandler())
	partnerRoutes.Put("/leads/:id/decline", partner.DeclineLeadHandler(d.clk))
	partnerRoutes.Put("/leads/:id/complete", partner.CompleteLeadHandler())
	partnerRoutes.Get("/commissions", partner.ListCommissionsHandler())

	// Firma sahibi ve admin. Boş önekli grubun ara katmanı sonrasında kayıtlı tüm
	// /api rotalarına uygulandığı için en sonda tanımlanır.
	manager := protected.Group("", auth.RequireManager())
	manager.Delete("/customers/:id", customer.DeleteHandler(d.store))
	manager.Delete("/projects/:id", customer.DeleteProjectHandler())
	manager.Post("/audit-logs/:id/undo", audit.UndoAuditLogHandler(d.clk))

	managerHR := manager.Group("/hr")
	managerHR.Post("/departments", hr.CreateDepartmentHandler())
	managerHR.Get("/departments", hr.ListDepartmentsHandler())
	managerHR.Put("/departments/:id", hr.UpdateDepartmentHandler())
	managerHR.Delete("/departments/:id", hr.DeleteDepartmentHandler())
	managerHR.Post("/employees", hr.CreateEmployeeHandler())
	managerHR.Get("/employees", hr.ListEmployeesHandler())
	managerHR.Get("/employees/:id", hr.GetEmployeeHandler())
	managerHR.Put("/employees/:id", hr.UpdateEmployeeHandler())
	managerHR.Delete("/employees/:id", hr.DeleteEmployeeHandler())
	managerHR.Put("/leave-requests/:id/review", hr.ReviewLeaveRequestHandler(d.clk))
	managerHR.Get("/time-entries/export", hr.ExportTimeEntriesHandler())
}

package api

import (
	"RiderPayroll/internal/auth"
	"RiderPayroll/internal/constants"

	"github.com/go-chi/chi/v5"
)

// ApiDependencies содержит зависимости для обработчиков API.
type ApiDependencies struct {
	Tokens   *auth.TokenService
	Importer ImportRunner
}

// deps — зависимости обработчиков, устанавливаются один раз в SetupRoutes.
var deps ApiDependencies

// SetupRoutes настраивает все маршруты для API.
func SetupRoutes(r *chi.Mux, d ApiDependencies) {
	deps = d

	// --- Публичные маршруты ---
	r.Group(func(r chi.Router) {
		r.Post("/api/register", RegisterHandler)
		r.Post("/api/login", LoginHandler)
		r.Post("/api/refresh", RefreshHandler)
		r.Post("/api/reset-password", ResetPasswordHandler)
	})

	// --- Маршруты, требующие авторизации ---
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(d.Tokens))

		r.Post("/api/logout", LogoutHandler)
		r.Get("/api/me", MeHandler)
		r.Get("/api/profile", ProfileHandler)
		r.Put("/api/profile/update-password", UpdatePasswordHandler)
		r.Get("/api/my/payments", GetMyPaymentsHandler)
		r.Get("/api/dashboard/stats", GetDashboardStatsHandler)

		// --- Маршруты администратора ---
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(RoleMiddleware(constants.ROLE_ADMIN))

			r.Get("/riders", AdminGetRidersHandler)
			r.Get("/riders/export", ExportRidersHandler)
			r.Get("/riders/{sno}/card-qr", GetRiderCardQRHandler)
			r.Post("/import-data", ImportDataHandler)
			r.Delete("/imports/{filename}", DeleteImportHandler)
			r.Get("/users", ListUsersHandler)
			r.Put("/update-user", UpdateUserHandler)
			r.Delete("/delete-user/{username}", DeleteUserHandler)
			r.Get("/logs", GetAuditLogsHandler)
			r.Post("/generate-reset-token", GenerateResetTokenHandler)
		})
	})
}

package http

import (
	"io"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/geofence-attendance/internal/config"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	"github.com/cmlabs-hris/geofence-attendance/internal/handler/http/middleware"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// Handlers groups every HTTP handler mounted by NewRouter.
type Handlers struct {
	Auth       AuthHandler
	Attendance AttendanceHandler
	Settings   SettingsHandler
	Audit      AuditHandler
	Retention  RetentionHandler
}

// NewLogger builds the process logger: JSON in ECS field names, tagged with app and env.
func NewLogger(w io.Writer, app config.AppConfig) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(app.Env != "development")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(app.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "geofence-attendance"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewRouter(app config.AppConfig, logger *slog.Logger, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/attendance", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceCreate))
					r.Post("/check-in", h.Attendance.CheckIn)
					r.Post("/check-out", h.Attendance.CheckOut)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionAttendanceViewOwn))
					r.Get("/today", h.Attendance.Today)
					r.Get("/history", h.Attendance.History)
				})
			})

			// Admin only
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.With(middleware.RequirePermission(user.PermissionAttendanceViewAll)).
					Get("/attendance", h.Attendance.List)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionSettingsManage))

					r.Route("/geofence", func(r chi.Router) {
						r.Get("/", h.Settings.GetGeofence)
						r.Put("/", h.Settings.UpdateGeofence)
					})

					r.Route("/timetable", func(r chi.Router) {
						r.Get("/", h.Settings.GetTimetable)
						r.Put("/{day}", h.Settings.UpsertScheduleEntry)
						r.Delete("/{day}", h.Settings.DeleteScheduleEntry)
					})

					r.Route("/calendar", func(r chi.Router) {
						r.Get("/", h.Settings.ListCalendarExceptions)
						r.Post("/", h.Settings.CreateCalendarException)
						r.Delete("/{date}", h.Settings.DeleteCalendarException)
					})
				})

				r.With(middleware.RequirePermission(user.PermissionAuditView)).
					Get("/audit-logs", h.Audit.List)

				r.With(middleware.RequirePermission(user.PermissionRetentionTrigger)).
					Post("/retention/run", h.Retention.Run)
			})
		})
	})
	return r
}

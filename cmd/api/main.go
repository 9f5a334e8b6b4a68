package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/geofence-attendance/internal/config"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/audit"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/settings"
	"github.com/cmlabs-hris/geofence-attendance/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/geofence-attendance/internal/handler/http"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/cron"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/geofence-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/memory"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/postgresql"
	"github.com/cmlabs-hris/geofence-attendance/internal/repository/redis"
	attendanceService "github.com/cmlabs-hris/geofence-attendance/internal/service/attendance"
	auditService "github.com/cmlabs-hris/geofence-attendance/internal/service/audit"
	serviceAuth "github.com/cmlabs-hris/geofence-attendance/internal/service/auth"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/retention"
	"github.com/cmlabs-hris/geofence-attendance/internal/service/schedule"
	settingsService "github.com/cmlabs-hris/geofence-attendance/internal/service/settings"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const auditQueueSize = 256

type repositories struct {
	attendance attendance.AttendanceRepository
	settings   settings.SettingsRepository
	audit      audit.AuditRepository
	users      user.UserRepository
	close      func()
}

func openRepositories(cfg *config.Config) (repositories, error) {
	switch cfg.Database.Driver {
	case "memory":
		slog.Warn("Using in-memory storage, data is lost on restart")
		var seed []user.User
		if cfg.Database.SeedAdminEmail != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Database.SeedAdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return repositories{}, fmt.Errorf("failed to hash seed admin password: %w", err)
			}
			hashStr := string(hash)
			seed = append(seed, user.User{
				ID:           uuid.Must(uuid.NewV7()).String(),
				Email:        cfg.Database.SeedAdminEmail,
				Name:         "Administrator",
				PasswordHash: &hashStr,
				Role:         user.RoleAdmin,
				IsActive:     true,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			})
		}
		return repositories{
			attendance: memory.NewAttendanceRepository(),
			settings:   memory.NewSettingsRepository(),
			audit:      memory.NewAuditRepository(),
			users:      memory.NewUserRepository(seed...),
			close:      func() {},
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), cfg.Database.QueryTimeout)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repositories{
			attendance: postgresql.NewAttendanceRepository(db),
			settings:   postgresql.NewSettingsRepository(db),
			audit:      postgresql.NewAuditRepository(db),
			users:      postgresql.NewUserRepository(db),
			close:      db.Close,
		}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := appHTTP.NewLogger(os.Stdout, cfg.App)
	slog.SetDefault(logger)
	loc := cfg.Location()

	repos, err := openRepositories(cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer repos.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Settings are read on every check-in; cache them when Redis is available.
	settingsRepo := repos.settings
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("Redis unavailable, settings cache disabled", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
		settingsRepo = redis.NewSettingsCache(settingsRepo, rdb, cfg.Redis.TTL)
		slog.Info("Settings cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	restDays := schedule.RestDaySet(cfg.Attendance.RestDays)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	auditSvc := auditService.NewAuditService(repos.audit, auditQueueSize, loc)
	settingsSvc := settingsService.NewSettingsService(settingsRepo, auditSvc, loc)
	attendanceSvc := attendanceService.NewAttendanceService(
		repos.attendance,
		settingsSvc,
		attendanceService.Policy{
			RestDays:              restDays,
			EnforceWorkWindow:     cfg.Attendance.EnforceWorkWindow,
			CheckOutRequiresFence: cfg.Attendance.CheckOutRequiresFence,
		},
		loc,
		time.Now,
	)
	authSvc := serviceAuth.NewAuthService(repos.users, JWTService)
	sweeper := retention.NewSweeper(repos.attendance, auditSvc, cfg.Attendance.RetentionDays, cfg.Attendance.SweepBatchSize, loc)

	scheduler := cron.NewScheduler()
	attendanceJobs := cron.NewAttendanceJobs(repos.attendance, repos.users, settingsSvc, sweeper, restDays, loc)
	attendanceJobs.RegisterJobs(scheduler, cfg.Attendance.SweepInterval)
	scheduler.Start()

	router := appHTTP.NewRouter(cfg.App, logger, JWTService, appHTTP.Handlers{
		Auth:       appHTTP.NewAuthHandler(authSvc),
		Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
		Settings:   appHTTP.NewSettingsHandler(settingsSvc),
		Audit:      appHTTP.NewAuditHandler(auditSvc),
		Retention:  appHTTP.NewRetentionHandler(sweeper),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	scheduler.Stop()
	// Flush queued audit entries before storage closes.
	auditSvc.Close()
	slog.Info("Server stopped")
}

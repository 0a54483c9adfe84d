package app

import (
	"net/http"

	"bridgeai-backend/internal/auth"
	"bridgeai-backend/internal/config"
	"bridgeai-backend/internal/database"
	"bridgeai-backend/internal/emails"
	"bridgeai-backend/internal/health"
	"bridgeai-backend/internal/invitations"
	"bridgeai-backend/internal/middleware"
	"bridgeai-backend/internal/pkg/constants"
	"bridgeai-backend/internal/teams"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and routes.
// db may be nil when DATABASE_URL is unset (health endpoints still work).
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	// CORS before session
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	// Session (Redis); the client is shared with the health marker
	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	// Health (no auth): dashboard + JSON + error log
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
		FrontendURL:    cfg.FrontendURL,
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			healthHandlers.DB = sqlDB
		}
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	// Auth (no auth middleware)
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	sender := &emails.BrevoClient{APIKey: cfg.BrevoAPIKey, MailFrom: cfg.MailFrom}
	authHandlers := &auth.Handlers{
		DB:         db,
		UserFinder: userFinder,
		Rdb:        rdb,
		Emails:     sender,
		Config:     sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/signup", authHandlers.Signup)
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db != nil {
		teamService := &teams.Service{DB: db}
		teamHandlers := &teams.Handlers{Service: teamService}

		invService := &invitations.Service{
			DB:          db,
			Emails:      sender,
			FrontendURL: cfg.FrontendURL,
		}
		invHandlers := &invitations.Handlers{Service: invService}

		// Token check is public: the bearer may not have an account yet.
		app.Post("/api/v1/invitations/public/check-token", invHandlers.CheckToken)

		invGroup := app.Group("/api/v1/invitations", middleware.RequireAuth())
		invGroup.Post("/accept-invite", invHandlers.AcceptInvite)

		teamGroup := app.Group("/api/v1/teams", middleware.RequireAuth())
		teamGroup.Post("/", teamHandlers.CreateTeam)
		teamGroup.Get("/:team_id", teamHandlers.GetTeam)
		teamGroup.Get("/:team_id/members", teamHandlers.ListMembers)

		// Invitation management is owner/admin only, resolved per team.
		teamGroup.Post("/:team_id/invitations",
			middleware.AuthorizeTeamPermission(teamService, constants.InviteMember), invHandlers.SendInvite)
		teamGroup.Get("/:team_id/invitations",
			middleware.AuthorizeTeamPermission(teamService, constants.ViewInvitations), invHandlers.ListTeamInvitations)
		teamGroup.Delete("/:team_id/invitations/:invite_id",
			middleware.AuthorizeTeamPermission(teamService, constants.CancelInvite), invHandlers.CancelInvite)
		teamGroup.Post("/:team_id/invitations/resend",
			middleware.AuthorizeTeamPermission(teamService, constants.InviteMember), invHandlers.ResendInvite)
	}

	return app, db, rdb, nil
}

// Handler returns an http.Handler for serverless deploys.
func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}

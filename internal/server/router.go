package server

import (
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Voralis/grantly/internal/cache"
	"github.com/Voralis/grantly/internal/config"
	"github.com/Voralis/grantly/internal/cors"
	"github.com/Voralis/grantly/internal/database"
	"github.com/Voralis/grantly/internal/domain/auth"
	"github.com/Voralis/grantly/internal/domain/authorization"
	"github.com/Voralis/grantly/internal/domain/client"
	"github.com/Voralis/grantly/internal/domain/user"
	"github.com/Voralis/grantly/internal/metadata"
	"github.com/Voralis/grantly/internal/token"
	"github.com/Voralis/grantly/internal/utils"
)

// SetupRoutes wires repositories, services and handlers onto the Fiber app.
// Routes are mounted under /v1: the authenticated connections API, the
// internal grant hook and a health probe.
func SetupRoutes(app *fiber.App, cfg *config.Config) error {
	api := app.Group("/v1")

	// Initialize repositories
	userRepo := user.NewRepository(database.DB)
	clientRepo := client.NewRepository(database.DB)
	authzRepo := authorization.NewRepository(database.DB)

	tokenStore := token.NewStore(cache.RedisClient)

	geo := metadata.OpenGeoIP(&cfg.GeoIP)
	extractor := metadata.NewExtractor(geo)

	// Initialize services
	tracker := authorization.NewTracker(authzRepo, userRepo)
	revoker := authorization.NewRevoker(authzRepo, userRepo, tokenStore)
	events := authorization.NewEventService(authzRepo, clientRepo)
	handler := authorization.NewHandler(tracker, revoker, events, authzRepo, clientRepo, extractor)

	keyStore, err := auth.LoadKeys(cfg.Auth.KeysPath, cfg.Auth.ActiveKID)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}
	slog.Info("Verification keys loaded", "keys", keyStore.KeySet.Len(), "active_kid", cfg.Auth.ActiveKID)

	issuer := cfg.Server.Domain
	verifier := auth.NewVerifier(keyStore, issuer)

	// Connections API, access-token protected and scoped to the caller
	connections := api.Group("/connections")
	connections.Use(auth.Middleware(verifier))
	connections.Get("/", handler.ListActive)
	connections.Get("/inactive", handler.ListInactive)
	connections.Get("/:clientID/events", handler.GetEvents)
	connections.Delete("/:clientID", handler.Revoke)

	// OAuth surface: per-client CORS plus the internal grant hook
	corsResolver := cors.NewResolver(clientRepo)
	app.Use(cors.Middleware(corsResolver))

	oauthGroup := api.Group("/oauth")
	oauthGroup.Post("/grants", internalKeyMiddleware(cfg.Server.InternalAPIKey), handler.TrackGrant)

	api.Get("/health", func(c *fiber.Ctx) error {
		return utils.SuccessResponse(c, fiber.Map{"status": "ok"}, "Service healthy")
	})

	return nil
}

// internalKeyMiddleware guards endpoints that only the token engine may
// call. The shared key is compared in constant time.
func internalKeyMiddleware(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		provided := c.Get("X-Internal-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			return utils.ErrorResponse(c, utils.ErrForbidden)
		}
		return c.Next()
	}
}

// Package auth implements the authentication API endpoints.
package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	authsvc "github.com/maxdaylight/HomelabWiki/internal/auth"
	"github.com/maxdaylight/HomelabWiki/internal/config"
	"github.com/maxdaylight/HomelabWiki/internal/db/models"
	"github.com/maxdaylight/HomelabWiki/internal/web/handler"
	"github.com/maxdaylight/HomelabWiki/internal/web/session"
)

const (
	// Path is the base path of the authentication API.
	Path = "/api/auth"
)

// Service is the authentication handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	auth     *authsvc.Service
	validate *validator.Validate
}

// Handler is the authentication handler.
var Handler = Service{}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Init initializes the authentication handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.cfg = cfg
	s.db = db
	s.auth = authsvc.NewService(cfg, db)
	s.validate = validator.New()

	app.Route(Path, func(router fiber.Router) {
		router.Post("/login", s.Login)
		router.Post("/logout", authsvc.RequireAuth(), s.Logout)
		router.Get("/me", authsvc.RequireAuth(), s.Me)
		router.Get("/check", s.Check)
		router.Post("/test-ldap", s.TestLDAP)
		router.Post("/sync/:username", authsvc.RequirePermission("admin"), s.Sync)
	})

	return nil
}

// Login authenticates the supplied credentials and opens a session.
// Wrong passwords and unknown usernames produce the identical response.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No data provided"})
	}

	if err := s.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Username and password required"})
	}

	user, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrLoginFailed) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	sessionID := session.GenerateSessionID()

	userSession := &session.Data{User: *user}
	if err := userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
	}

	cookie := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}
	c.Cookie(cookie)

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
	})
}

// Logout tears down the current session.
func (s *Service) Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID != "" {
		if err := session.Delete(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to delete session")
		}
	}

	c.ClearCookie(session.CookieName)

	return c.JSON(fiber.Map{"message": "Logout successful"})
}

// Me returns the current user.
func (s *Service) Me(c *fiber.Ctx) error {
	user := authsvc.CurrentUser(c)

	// refresh from the database so permission changes show up without re-login
	var fresh models.User
	if err := s.db.First(&fresh, user.ID).Error; err == nil {
		user = &fresh
	}

	return c.JSON(fiber.Map{"user": user})
}

// Check reports authentication status without requiring it.
func (s *Service) Check(c *fiber.Ctx) error {
	if user := authsvc.CurrentUser(c); user != nil {
		return c.JSON(fiber.Map{"authenticated": true, "user": user})
	}

	return c.JSON(fiber.Map{"authenticated": false})
}

// TestLDAP performs a service-account bind against the directory server.
func (s *Service) TestLDAP(c *fiber.Ctx) error {
	if s.auth.TestConnection() {
		return c.JSON(fiber.Map{"message": "LDAP connection successful"})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "LDAP connection failed"})
}

// Sync refreshes a known user's identity and permissions from the directory.
func (s *Service) Sync(c *fiber.Ctx) error {
	username := c.Params("username")

	ok, message := s.auth.SyncFromDirectory(username)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
	}

	return c.JSON(fiber.Map{"message": message})
}

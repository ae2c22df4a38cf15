// This file contains the WebServer, the HTTP surface of the twawler. It exposes
// admin login, twawl rule management, the manual twawl trigger, the OAuth callback,
// the content proxy and the capability report over a Fiber app.
//
// All rule management routes sit behind JWT bearer auth; the OAuth callback and the
// proxy are open because twitter and the proxied partners call them directly.

package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/golang-jwt/jwt"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/frankk00/gaetools/internal/capability"
	"github.com/frankk00/gaetools/internal/common"
	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/history"
	"github.com/frankk00/gaetools/internal/models/rule"
	"github.com/frankk00/gaetools/internal/models/token"
	"github.com/frankk00/gaetools/internal/models/user"
	"github.com/frankk00/gaetools/internal/proxy"
	"github.com/frankk00/gaetools/internal/tasks"
	"github.com/frankk00/gaetools/internal/twitter"
)

// TweetCounter reports how many tweets have been saved for a rule; satisfied by
// *tweet.Manager.
type TweetCounter interface {
	CountForRule(ctx context.Context, ruleName string) (int64, error)
}

// Services bundles everything the web layer calls into.
type Services struct {
	Users     *user.Manager
	Rules     *rule.Manager
	Histories *history.Manager
	Tweets    TweetCounter
	Tokens    *token.Manager
	Twawler   *tasks.Service
	Auth      *twitter.Auth
	Search    *twitter.Client
	Proxy     *proxy.CachingContentProxy
	Checker   *capability.Checker
}

type WebServer struct {
	jwtSecret string
	app       *fiber.App
	services  Services
	logger    *log.Logger
}

func NewWebServer(jwtSecret string, services Services, logger *log.Logger) *WebServer {
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type",
	}))

	return &WebServer{
		jwtSecret: jwtSecret,
		app:       app,
		services:  services,
		logger:    logger,
	}
}

func (s *WebServer) Run(ip string, port int) error {
	s.SetupRoutes()
	return s.app.Listen(ip + ":" + strconv.Itoa(port))
}

// Shutdown gracefully stops the Fiber app.
func (s *WebServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *WebServer) SetupRoutes() {
	s.app.Post("/login", s.loginUser)
	s.app.Post("/register", s.registerUser)
	s.app.Post("/password", s.tokenRequired(s.updatePassword))
	s.app.Get("/routes", s.getRoutes)
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/capabilities", s.getCapabilities)
	s.app.Get("/rules", s.tokenRequired(s.listRules))
	s.app.Post("/rules", s.tokenRequired(s.saveRule))
	s.app.Get("/rules/:name", s.tokenRequired(s.getRule))
	s.app.Get("/rules/:name/history", s.tokenRequired(s.getRuleHistory))
	s.app.Post("/tasks/twawl/:name", s.tokenRequired(s.triggerTwawl))
	s.app.Get("/oauth/callback", s.oauthCallback)
	s.app.Get("/proxy", s.proxyFetch)
}

func (s *WebServer) tokenRequired(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			s.logger.Info("Missing Authorization header")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Missing Authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.logger.Info("Invalid Authorization header format. Expected: `Bearer <token>`")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Authorization header format. Expected: `Bearer <token>`"})
		}

		tokenString := parts[1]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.jwtSecret), nil
		})

		if err != nil || !token.Valid {
			s.logger.Info("Invalid token")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			s.logger.Info("Invalid token claims")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}
		userID, ok := claims["sub"].(string)
		if !ok {
			s.logger.Info("Invalid user ID in token")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
		}

		c.Locals("userID", userID)
		return handler(c)
	}
}

func (s *WebServer) loginUser(c *fiber.Ctx) error {
	s.logger.Info("Login request received")

	var req common.LoginRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Login request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.logger.Info("Login request validated")

	admin, err := s.services.Users.GetUserByUsername(c.Context(), req.Username)
	if err != nil {
		s.logger.Info("User login failed:", err.Error())
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	}
	if err := admin.CheckPassword(req.Password); err != nil {
		s.logger.Info("User login failed: incorrect password")
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid username or password"})
	}
	s.logger.Info("User logged in")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": admin.ID.Hex(),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		s.logger.Info("Failed to generate token")
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}
	s.logger.Infof("JWT token generated, userID %s\n", admin.ID.Hex())

	return c.Status(http.StatusOK).JSON(fiber.Map{"jwtToken": tokenString})
}

func (s *WebServer) registerUser(c *fiber.Ctx) error {
	s.logger.Info("Register request received")

	var req common.RegisterRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Register request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	_, err := s.services.Users.GenerateUser(c.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Info("User registration failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("User registered successfully")
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "User created"})
}

func (s *WebServer) updatePassword(c *fiber.Ctx) error {
	s.logger.Info("Password update request received")

	var req common.UpdatePasswordRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Password update request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userID, err := primitive.ObjectIDFromHex(c.Locals("userID").(string))
	if err != nil {
		s.logger.Info("Invalid user ID:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	if err := s.services.Users.UpdatePassword(c.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		s.logger.Info("Password update failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Info("Password updated successfully")
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Password updated"})
}

func (s *WebServer) listRules(c *fiber.Ctx) error {
	s.logger.Info("List rules request received")

	rules, err := s.services.Rules.List(c.Context())
	if err != nil {
		s.logger.Info("Failed to list rules:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"rules": rules})
}

func (s *WebServer) getRule(c *fiber.Ctx) error {
	s.logger.Info("Get rule request received")

	var req common.GetRuleRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Get rule request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	r, err := s.services.Rules.Find(c.Context(), req.RuleName)
	if err != nil {
		if errors.Is(err, rule.ErrRuleNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.Info("Failed to get rule:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	saved, err := s.services.Tweets.CountForRule(c.Context(), r.RuleName)
	if err != nil {
		s.logger.Info("Failed to count saved tweets:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"rule": r, "saved_tweets": saved})
}

func (s *WebServer) saveRule(c *fiber.Ctx) error {
	s.logger.Info("Save rule request received")

	var req common.SaveRuleRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Save rule request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	r, err := s.services.Rules.FindOrCreate(c.Context(), req.RuleName)
	if err != nil {
		s.logger.Info("Failed to load rule:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	r.Query = req.Query
	r.Language = req.Language
	if err := s.services.Rules.Save(c.Context(), r); err != nil {
		s.logger.Info("Failed to save rule:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Infof("Rule %s saved", r.RuleName)
	return c.Status(http.StatusOK).JSON(fiber.Map{"rule": r})
}

func (s *WebServer) getRuleHistory(c *fiber.Ctx) error {
	s.logger.Info("Get rule history request received")

	var req common.GetRuleHistoryRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Get rule history request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	records, err := s.services.Histories.ListForRule(c.Context(), req.RuleName, req.Days)
	if err != nil {
		s.logger.Info("Failed to get rule history:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"rule_name": req.RuleName, "history": records})
}

func (s *WebServer) triggerTwawl(c *fiber.Ctx) error {
	s.logger.Info("Twawl trigger request received")

	var req common.TriggerTwawlRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Twawl trigger request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := s.services.Twawler.Twawl(c.Context(), req.RuleName, tasks.Options{
		AllowInit:  req.Init,
		RequestKey: req.OAuthToken,
		Account:    req.Account,
	})
	if err != nil {
		var authErr *twitter.AuthRequiredError
		if errors.As(err, &authErr) {
			s.logger.Info("Twawl needs twitter authorization first")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error":             "twitter authorization required",
				"authorization_url": authErr.AuthorizationURL,
			})
		}
		if errors.Is(err, twitter.ErrNoAccessToken) {
			s.logger.Info("Twawl trigger rejected: no access token")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, token.ErrTokenNotFound) {
			s.logger.Info("Twawl trigger rejected: no token for account", req.Account)
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.Info("Twawl failed:", err.Error())
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.logger.Infof("Twawl for rule %s processed %d tweets in %d steps", result.RuleName, result.Processed, result.Steps)
	return c.Status(http.StatusOK).JSON(result)
}

func (s *WebServer) oauthCallback(c *fiber.Ctx) error {
	s.logger.Info("OAuth callback request received")

	var req common.OAuthCallbackRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("OAuth callback validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.services.Auth.CompleteAuthorization(c.Context(), req.OAuthToken, req.OAuthVerifier); err != nil {
		s.logger.Info("OAuth authorization failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	s.logger.Info("OAuth authorization completed")

	// record which account authorized the token, so later twawls can select it
	// by account name
	login := &twitter.LoginRequest{}
	if err := s.services.Search.VerifyCredentials(c.Context(), login, twitter.RequestOptions{RequestKey: req.OAuthToken}); err != nil {
		s.logger.Warnf("unable to verify credentials for the new token: %v", err)
	} else if login.Successful {
		record, err := s.services.Tokens.FindByRequestKey(c.Context(), req.OAuthToken)
		if err == nil {
			record.UserName = login.ScreenName
			record.UserID = login.TwitterID
			if err := s.services.Tokens.Save(c.Context(), record); err != nil {
				s.logger.Warnf("unable to record the account for the new token: %v", err)
			} else {
				s.logger.Infof("token authorized by account %s", login.ScreenName)
			}
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Authorization complete. Twawls can now run with this token."})
}

func (s *WebServer) proxyFetch(c *fiber.Ctx) error {
	s.logger.Info("Proxy fetch request received")

	var req common.ProxyFetchRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Proxy fetch request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	content, err := s.services.Proxy.Get(c.Context(), req.URI)
	if err != nil {
		if errors.Is(err, proxy.ErrNoProxyMatch) {
			s.logger.Info("No proxy configuration for uri:", req.URI)
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		s.logger.Info("Proxy fetch failed:", err.Error())
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", content.ContentType)
	return c.Status(http.StatusOK).Send(content.Body)
}

func (s *WebServer) getCapabilities(c *fiber.Ctx) error {
	s.logger.Info("Capability report request received")
	report := s.services.Checker.Run(c.Context())
	return c.Status(http.StatusOK).JSON(fiber.Map{"capabilities": report})
}

func (s *WebServer) getRoutes(c *fiber.Ctx) error {
	s.logger.Info("Get routes request received")
	routes := s.app.GetRoutes()
	return c.Status(http.StatusOK).JSON(routes)
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	s.logger.Info("Health check request received")
	return c.SendString("OK")
}

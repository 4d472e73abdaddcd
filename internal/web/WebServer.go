package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/technotes/user-service/internal/log"
	"github.com/technotes/user-service/internal/services"
)

type WebServer struct {
	accessTokenSecret string
	app               *fiber.App
	users             *UserController
	logger            *log.Logger
}

// NewWebServer creates the Fiber app and registers the routes.
// An empty accessTokenSecret leaves the user routes unguarded.
func NewWebServer(accessTokenSecret string, userService *services.UserService, logger *log.Logger) *WebServer {
	s := &WebServer{
		accessTokenSecret: accessTokenSecret,
		users:             NewUserController(userService, logger),
		logger:            logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "user-service",
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	s.SetupRoutes()
	return s
}

// App returns the underlying Fiber app.
func (s *WebServer) App() *fiber.App {
	return s.app
}

func (s *WebServer) Run(address string) error {
	return s.app.Listen(address)
}

func (s *WebServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *WebServer) SetupRoutes() {
	s.app.Get("/routes", s.getRoutes)
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/users", s.tokenRequired(s.users.ListUsers))
	s.app.Post("/users", s.tokenRequired(s.users.CreateUser))
	s.app.Patch("/users", s.tokenRequired(s.users.UpdateUser))
	s.app.Delete("/users", s.tokenRequired(s.users.DeleteUser))
}

// tokenRequired checks the bearer access token when a secret is configured.
// The token's UserInfo claim is stored in the username and roles locals.
func (s *WebServer) tokenRequired(handler fiber.Handler) fiber.Handler {
	if s.accessTokenSecret == "" {
		return handler
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.logger.Info("Missing or malformed Authorization header")
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.accessTokenSecret), nil
		})
		if err != nil || !token.Valid {
			s.logger.Info("Invalid token")
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			s.logger.Info("Invalid token claims")
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}
		userInfo, ok := claims["UserInfo"].(map[string]interface{})
		if !ok {
			s.logger.Info("Token has no UserInfo claim")
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}

		username, _ := userInfo["username"].(string)
		var roles []string
		if rawRoles, ok := userInfo["roles"].([]interface{}); ok {
			for _, r := range rawRoles {
				if role, ok := r.(string); ok {
					roles = append(roles, role)
				}
			}
		}

		c.Locals("username", username)
		c.Locals("roles", roles)
		return handler(c)
	}
}

// errorHandler is the responder for errors the handlers do not answer themselves.
func (s *WebServer) errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message, "isError": true})
	}

	s.logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error", "isError": true})
}

func (s *WebServer) getRoutes(c *fiber.Ctx) error {
	s.logger.Info("Get routes request received")
	routes := s.app.GetRoutes(true)
	return c.Status(http.StatusOK).JSON(routes)
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	return c.SendString("OK")
}

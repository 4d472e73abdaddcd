package web

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/technotes/user-service/internal/common"
	"github.com/technotes/user-service/internal/log"
	"github.com/technotes/user-service/internal/services"
)

// Validation messages
const (
	MsgAllFieldsRequired       = "All fields are required"
	MsgAllFieldsExceptPassword = "All fields except password are required"
	MsgUserIDRequired          = "User ID Required"
	MsgInvalidUserID           = "Invalid user ID"
)

// UserController exposes the UserService over HTTP.
type UserController struct {
	userService *services.UserService
	logger      *log.Logger
}

func NewUserController(userService *services.UserService, logger *log.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers responds with every user, without passwords.
func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	uc.logger.Info("List users request received")

	users, err := uc.userService.ListUsers(c.UserContext())
	if err != nil {
		return uc.fail(c, "List users", err)
	}

	uc.logger.Infof("Listed %d users", len(users))
	return c.Status(http.StatusOK).JSON(users)
}

// CreateUser creates a user from {username, password, roles}.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	uc.logger.Info("Create user request received")

	var req common.CreateUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		uc.logger.Info("Create user request validation failed:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgAllFieldsRequired})
	}

	created, err := uc.userService.CreateUser(c.UserContext(), req.Username, req.Password, req.Roles)
	if err != nil {
		return uc.fail(c, "Create user", err)
	}

	uc.logger.Info("User created successfully")
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": fmt.Sprintf("New user %s created", created.Username),
		"user":    created.View(),
	})
}

// UpdateUser overwrites a user from {id, username, roles, active, password?}.
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	uc.logger.Info("Update user request received")

	var req common.UpdateUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		uc.logger.Info("Update user request validation failed:", err.Error())
		if failedOn(err, "objectid") {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgInvalidUserID})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgAllFieldsExceptPassword})
	}

	userID, err := primitive.ObjectIDFromHex(req.ID)
	if err != nil {
		uc.logger.Info("Invalid user ID:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgInvalidUserID})
	}

	updated, err := uc.userService.UpdateUser(c.UserContext(), services.UpdateUserInput{
		ID:       userID,
		Username: req.Username,
		Roles:    req.Roles,
		Active:   *req.Active,
		Password: req.Password,
	})
	if err != nil {
		return uc.fail(c, "Update user", err)
	}

	uc.logger.Info("User updated successfully")
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": fmt.Sprintf("%s updated", updated.Username)})
}

// DeleteUser deletes the user {id} unless notes are still assigned to it.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	uc.logger.Info("Delete user request received")

	var req common.DeleteUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		uc.logger.Info("Delete user request validation failed:", err.Error())
		if failedOn(err, "objectid") {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgInvalidUserID})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgUserIDRequired})
	}

	userID, err := primitive.ObjectIDFromHex(req.ID)
	if err != nil {
		uc.logger.Info("Invalid user ID:", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"message": MsgInvalidUserID})
	}

	deleted, err := uc.userService.DeleteUser(c.UserContext(), userID)
	if err != nil {
		return uc.fail(c, "Delete user", err)
	}

	uc.logger.Info("User deleted successfully")
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("Username %s with ID %s deleted", deleted.Username, deleted.ID.Hex()),
	})
}

// fail responds to expected service errors; anything else goes to the app's error handler.
func (uc *UserController) fail(c *fiber.Ctx, operation string, err error) error {
	serviceErr, ok := services.AsServiceError(err)
	if !ok {
		return err
	}
	uc.logger.Infof("%s failed: %s", operation, serviceErr.Error())
	return c.Status(statusFor(serviceErr.Kind)).JSON(fiber.Map{"message": serviceErr.Message})
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindInvalidData:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// This file contains the actual validator implementation for incoming http requests.
//
// You can implement custom validators for each field in this file and reference them in the request structs.

package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

// Initialize the custom validator
func init() {
	validate = validator.New()
	validate.RegisterValidation("objectid", validateObjectID)
}

// ValidateRequest validates a request using a Fiber context and a request struct.
// It parses the request differently based on HTTP method.
func ValidateRequest(c *fiber.Ctx, req interface{}) error {
	switch c.Method() {
	case fiber.MethodGet:
		// For GET requests, we only need to parse query and path parameters
		if err := c.QueryParser(req); err != nil {
			return err
		}
		if err := c.ParamsParser(req); err != nil {
			return err
		}
	case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		// For requests with body content
		if err := c.BodyParser(req); err != nil {
			return err
		}
	default:
		// Unsupported HTTP method
	}

	return validate.Struct(req)
}

// failedOn reports whether err is a validation failure of the given tag.
func failedOn(err error, tag string) bool {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return false
	}
	for _, fieldErr := range validationErrs {
		if fieldErr.Tag() == tag {
			return true
		}
	}
	return false
}

// validateObjectID checks that a string field holds a hex encoded MongoDB ObjectID.
func validateObjectID(fl validator.FieldLevel) bool {
	return primitive.IsValidObjectID(fl.Field().String())
}

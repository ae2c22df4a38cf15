// This file contains the actual validator implementation for incoming http requests.
//
// You can implement custom validators for each field in this file and reference them in the request structs.

package web

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate *validator.Validate

// Rule names end up in cache keys and queue payloads, so keep them to a safe
// character set.
var ruleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,63}$`)

// Initialize the custom validator
func init() {
	validate = validator.New()
	validate.RegisterValidation("rulename", validateRuleName)
}

// ValidateRequest validates a request using a Fiber context and a request struct.
// It parses the request differently based on HTTP method.
func ValidateRequest(c *fiber.Ctx, req interface{}) error {
	// Check the HTTP method
	method := c.Method()

	switch method {
	case "GET":
		// For GET requests, we only need to parse query and path parameters
		if err := c.QueryParser(req); err != nil {
			return err
		}
		if err := c.ParamsParser(req); err != nil {
			return err
		}
	case "POST", "PUT", "PATCH":
		// For requests with potential body content. The twawl trigger posts
		// without a body, so only parse one when it is there.
		if len(c.Body()) > 0 {
			if err := c.BodyParser(req); err != nil {
				return err
			}
		}
		// Also parse query and path parameters for these methods if needed
		if err := c.QueryParser(req); err != nil {
			return err
		}
		if err := c.ParamsParser(req); err != nil {
			return err
		}
	default:
		// Unsupported HTTP method
	}

	return validate.Struct(req)
}

// validateRuleName is a custom validator for twawl rule names.
func validateRuleName(fl validator.FieldLevel) bool {
	return ruleNamePattern.MatchString(fl.Field().String())
}

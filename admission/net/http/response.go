// Package http provides the Fiber-facing surface of the admission library:
// standardized response helpers and the middleware chain (request logging,
// telemetry, admission control).
//
// Basic usage:
//
//	app := fiber.New()
//
//	app.Use(http.WithHTTPLogging(http.WithCustomLogger(logger)))
//	app.Use(http.AdmissionMiddleware(http.AdmissionConfig{Limiter: limiter}))
//
//	app.Get("/v1/orders", func(c *fiber.Ctx) error {
//	    return http.OK(c, orders)
//	})
//
// Error responses share the admission.Response format:
//
//	{
//	    "code":    "0102",
//	    "title":   "Admission Policy Not Found",
//	    "message": "No admission policy is configured for this identity."
//	}
package http

import (
	"net/http"
	"strconv"

	"github.com/ProveniaLabs/lib-admission/admission"
	"github.com/gofiber/fiber/v2"
)

// OK sends an HTTP 200 OK response with a custom body.
func OK(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusOK).JSON(s)
}

// Created sends an HTTP 201 Created response with a custom body.
func Created(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusCreated).JSON(s)
}

// Accepted sends an HTTP 202 Accepted response with a custom body.
func Accepted(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusAccepted).JSON(s)
}

// NoContent sends an HTTP 204 No Content response without a body.
//
// Use this function for successful operations that don't return data,
// such as credential deletions.
func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// BadRequest sends an HTTP 400 Bad Request response with a custom body.
//
// Unlike the other error responses, this accepts any payload to accommodate
// validation error details.
func BadRequest(c *fiber.Ctx, s any) error {
	return c.Status(http.StatusBadRequest).JSON(s)
}

// Unauthorized sends an HTTP 401 Unauthorized response with a custom code, title and message.
func Unauthorized(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusUnauthorized).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// Forbidden sends an HTTP 403 Forbidden response with a custom code, title and message.
func Forbidden(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusForbidden).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// NotFound sends an HTTP 404 Not Found response with a custom code, title and message.
//
// Example:
//
//	credential, err := repo.FindCredential(ctx, token)
//	if credential == nil {
//	    return http.NotFound(c, "0102", "Credential Not Found",
//	        "No credential exists for the given token")
//	}
func NotFound(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusNotFound).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// Conflict sends an HTTP 409 Conflict response with a custom code, title and message.
func Conflict(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusConflict).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// UnprocessableEntity sends an HTTP 422 Unprocessable Entity response with a custom code, title and message.
func UnprocessableEntity(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// TooManyRequests sends an HTTP 429 Too Many Requests response carrying a
// rate limit error body. Retry headers are the caller's responsibility, the
// admission middleware sets them before building the body.
func TooManyRequests(c *fiber.Ctx, err admission.RateLimitError) error {
	return c.Status(http.StatusTooManyRequests).JSON(err)
}

// InternalServerError sends an HTTP 500 Internal Server Error response.
//
// Be careful not to expose sensitive internal details in the error message.
func InternalServerError(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusInternalServerError).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// ServiceUnavailable sends an HTTP 503 Service Unavailable response with a
// custom code, title and message.
func ServiceUnavailable(c *fiber.Ctx, code, title, message string) error {
	return c.Status(http.StatusServiceUnavailable).JSON(admission.Response{
		Code:    code,
		Title:   title,
		Message: message,
	})
}

// JSONResponseError sends a JSON formatted error response with a custom error struct.
//
// The HTTP status code is parsed from the error's Code field, so it should
// hold a valid status code (e.g. "400", "404", "500").
func JSONResponseError(c *fiber.Ctx, err admission.Response) error {
	code, _ := strconv.Atoi(err.Code)

	return c.Status(code).JSON(err)
}

// JSONResponse sends a custom status code and body as a JSON response.
func JSONResponse(c *fiber.Ctx, status int, s any) error {
	return c.Status(status).JSON(s)
}

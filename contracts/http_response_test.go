package contracts

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/ProveniaLabs/lib-admission/admission"
	constant "github.com/ProveniaLabs/lib-admission/admission/constants"
	libHTTP "github.com/ProveniaLabs/lib-admission/admission/net/http"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAdmissionResponseContract validates the error response structures
func TestAdmissionResponseContract(t *testing.T) {
	t.Run("response_structure_contract", func(t *testing.T) {
		// Test that admission.Response structure remains stable
		response := admission.Response{}
		responseType := reflect.TypeOf(response)

		expectedFields := map[string]responseFieldContract{
			"EntityType": {
				typeName: "string",
				jsonTag:  "entityType,omitempty",
			},
			"Title": {
				typeName: "string",
				jsonTag:  "title,omitempty",
			},
			"Message": {
				typeName: "string",
				jsonTag:  "message,omitempty",
			},
			"Code": {
				typeName: "string",
				jsonTag:  "code,omitempty",
			},
			"Err": {
				typeName: "error",
				jsonTag:  "err,omitempty",
			},
		}

		for fieldName, expected := range expectedFields {
			field, exists := responseType.FieldByName(fieldName)
			assert.True(t, exists, "Response should have field %s", fieldName)

			if exists {
				assert.Equal(t, expected.typeName, field.Type.String(),
					"Response.%s should have type %s", fieldName, expected.typeName)
				assert.Equal(t, expected.jsonTag, field.Tag.Get("json"),
					"Response.%s should have json tag %s", fieldName, expected.jsonTag)
			}
		}
	})

	t.Run("rate_limit_error_structure_contract", func(t *testing.T) {
		// The 429 body adds the retry hint and the window name on top of the
		// standard error fields
		rlError := admission.RateLimitError{}
		errorType := reflect.TypeOf(rlError)

		expectedFields := map[string]responseFieldContract{
			"EntityType": {typeName: "string", jsonTag: "entityType,omitempty"},
			"Title":      {typeName: "string", jsonTag: "title,omitempty"},
			"Message":    {typeName: "string", jsonTag: "message,omitempty"},
			"Code":       {typeName: "string", jsonTag: "code,omitempty"},
			"RetryAfter": {typeName: "int", jsonTag: "retry_after,omitempty"},
			"Window":     {typeName: "string", jsonTag: "window,omitempty"},
			"Err":        {typeName: "error", jsonTag: "err,omitempty"},
		}

		for fieldName, expected := range expectedFields {
			field, exists := errorType.FieldByName(fieldName)
			assert.True(t, exists, "RateLimitError should have field %s", fieldName)

			if exists {
				assert.Equal(t, expected.typeName, field.Type.String(),
					"RateLimitError.%s should have type %s", fieldName, expected.typeName)
				assert.Equal(t, expected.jsonTag, field.Tag.Get("json"),
					"RateLimitError.%s should have json tag %s", fieldName, expected.jsonTag)
			}
		}
	})

	t.Run("error_method_contract", func(t *testing.T) {
		// Test that admission.Response implements error interface
		var response admission.Response
		var err error = response
		assert.NotNil(t, err, "admission.Response should implement error interface")

		// Response reports the message alone
		response = admission.Response{
			Code:    "0102",
			Message: "Test message",
		}
		assert.Equal(t, "Test message", response.Error())

		// RateLimitError prefixes the code when present
		rlError := admission.RateLimitError{
			Code:    "0100",
			Message: "Too many requests",
		}
		assert.Equal(t, "0100 - Too many requests", rlError.Error())

		rlError = admission.RateLimitError{Message: "Too many requests"}
		assert.Equal(t, "Too many requests", rlError.Error())
	})

	t.Run("rate_limit_error_unwrap_contract", func(t *testing.T) {
		underlying := errors.New("window exhausted")
		rlError := admission.ValidateRateLimitError(underlying, "ip")

		assert.ErrorIs(t, *rlError, underlying)
		assert.Equal(t, "0100", rlError.Code)
		assert.Equal(t, "Rate Limit Exceeded", rlError.Title)
		assert.Equal(t, "ip", rlError.EntityType)
	})

	t.Run("admission_error_codes_contract", func(t *testing.T) {
		// The canonical error codes must remain stable
		assert.Equal(t, "0100", constant.ErrRateLimitExceeded.Error())
		assert.Equal(t, "0101", constant.ErrBackendUnavailable.Error())
		assert.Equal(t, "0102", constant.ErrPolicyNotFound.Error())
		assert.Equal(t, "0103", constant.ErrMalformedIdentity.Error())

		// Every canonical error maps to a business response carrying its code
		canonical := []error{
			constant.ErrRateLimitExceeded,
			constant.ErrBackendUnavailable,
			constant.ErrPolicyNotFound,
			constant.ErrMalformedIdentity,
		}

		for _, err := range canonical {
			mapped := admission.ValidateBusinessError(err, "ip")

			var response admission.Response
			require.ErrorAs(t, mapped, &response, "error %s should map to a Response", err)
			assert.Equal(t, err.Error(), response.Code)
			assert.NotEmpty(t, response.Title)
			assert.NotEmpty(t, response.Message)
		}

		// Unknown errors pass through untouched
		unknown := errors.New("not a business error")
		assert.Equal(t, unknown, admission.ValidateBusinessError(unknown, "ip"))
	})
}

// TestHTTPResponseBehaviorContract validates actual HTTP response behavior
func TestHTTPResponseBehaviorContract(t *testing.T) {
	app := fiber.New()

	t.Run("success_responses_contract", func(t *testing.T) {
		// Test OK response (200)
		app.Get("/test-ok", func(c *fiber.Ctx) error {
			return libHTTP.OK(c, map[string]string{"status": "success"})
		})

		req := httptest.NewRequest("GET", "/test-ok", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var responseBody map[string]string
		err = json.NewDecoder(resp.Body).Decode(&responseBody)
		require.NoError(t, err)
		assert.Equal(t, "success", responseBody["status"])

		// Test Created response (201)
		app.Post("/test-created", func(c *fiber.Ctx) error {
			return libHTTP.Created(c, map[string]string{"id": "123"})
		})

		req = httptest.NewRequest("POST", "/test-created", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 201, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		// Test NoContent response (204)
		app.Delete("/test-no-content", func(c *fiber.Ctx) error {
			return libHTTP.NoContent(c)
		})

		req = httptest.NewRequest("DELETE", "/test-no-content", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 204, resp.StatusCode)
		// NoContent should have no body
		assert.Equal(t, int64(0), resp.ContentLength)
	})

	t.Run("error_responses_contract", func(t *testing.T) {
		// Test BadRequest response (400)
		app.Post("/test-bad-request", func(c *fiber.Ctx) error {
			return libHTTP.BadRequest(c, map[string]string{"error": "invalid input"})
		})

		req := httptest.NewRequest("POST", "/test-bad-request", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		// Test NotFound response (404)
		app.Get("/test-not-found", func(c *fiber.Ctx) error {
			return libHTTP.NotFound(c, "0102", "Admission Policy Not Found", "No policy for this identity")
		})

		req = httptest.NewRequest("GET", "/test-not-found", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 404, resp.StatusCode)

		var responseBody admission.Response
		err = json.NewDecoder(resp.Body).Decode(&responseBody)
		require.NoError(t, err)

		assert.Equal(t, "0102", responseBody.Code)
		assert.Equal(t, "Admission Policy Not Found", responseBody.Title)
		assert.Equal(t, "No policy for this identity", responseBody.Message)

		// Test ServiceUnavailable response (503)
		app.Get("/test-unavailable", func(c *fiber.Ctx) error {
			return libHTTP.ServiceUnavailable(c, "0101", "Counter Backend Unavailable", "Please try again later")
		})

		req = httptest.NewRequest("GET", "/test-unavailable", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 503, resp.StatusCode)

		err = json.NewDecoder(resp.Body).Decode(&responseBody)
		require.NoError(t, err)

		assert.Equal(t, "0101", responseBody.Code)
		assert.Equal(t, "Counter Backend Unavailable", responseBody.Title)

		// Test InternalServerError response (500)
		app.Get("/test-internal-error", func(c *fiber.Ctx) error {
			return libHTTP.InternalServerError(c, "SYS001", "System Error", "Credential store failed")
		})

		req = httptest.NewRequest("GET", "/test-internal-error", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 500, resp.StatusCode)

		err = json.NewDecoder(resp.Body).Decode(&responseBody)
		require.NoError(t, err)

		assert.Equal(t, "SYS001", responseBody.Code)
		assert.Equal(t, "System Error", responseBody.Title)
		assert.Equal(t, "Credential store failed", responseBody.Message)
	})

	t.Run("too_many_requests_contract", func(t *testing.T) {
		// The 429 body must keep its wire format: code, title, message,
		// retry_after and window
		app.Get("/test-too-many", func(c *fiber.Ctx) error {
			return libHTTP.TooManyRequests(c, admission.RateLimitError{
				EntityType: "ip",
				Code:       "0100",
				Title:      "Rate Limit Exceeded",
				Message:    "Too many requests. Please try again later.",
				RetryAfter: 42,
				Window:     "minute",
			})
		})

		req := httptest.NewRequest("GET", "/test-too-many", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 429, resp.StatusCode)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))

		assert.Equal(t, "ip", raw["entityType"])
		assert.Equal(t, "0100", raw["code"])
		assert.Equal(t, "Rate Limit Exceeded", raw["title"])
		assert.Equal(t, "Too many requests. Please try again later.", raw["message"])
		assert.Equal(t, float64(42), raw["retry_after"])
		assert.Equal(t, "minute", raw["window"])
	})

	t.Run("json_response_contract", func(t *testing.T) {
		// Test JSONResponse with custom status
		app.Get("/test-json-response", func(c *fiber.Ctx) error {
			return libHTTP.JSONResponse(c, 418, map[string]string{"message": "I'm a teapot"})
		})

		req := httptest.NewRequest("GET", "/test-json-response", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 418, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var responseBody map[string]string
		err = json.NewDecoder(resp.Body).Decode(&responseBody)
		require.NoError(t, err)
		assert.Equal(t, "I'm a teapot", responseBody["message"])

		// Test JSONResponseError
		app.Get("/test-json-error", func(c *fiber.Ctx) error {
			errorResp := admission.Response{
				Code:    "400",
				Title:   "Validation Error",
				Message: "Invalid request data",
			}
			return libHTTP.JSONResponseError(c, errorResp)
		})

		req = httptest.NewRequest("GET", "/test-json-error", nil)
		resp, err = app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, 400, resp.StatusCode) // Should parse Code as status

		var errorResponseBody admission.Response
		err = json.NewDecoder(resp.Body).Decode(&errorResponseBody)
		require.NoError(t, err)

		assert.Equal(t, "400", errorResponseBody.Code)
		assert.Equal(t, "Validation Error", errorResponseBody.Title)
		assert.Equal(t, "Invalid request data", errorResponseBody.Message)
	})
}

// Helper types for contract testing

type responseFieldContract struct {
	typeName string
	jsonTag  string
}

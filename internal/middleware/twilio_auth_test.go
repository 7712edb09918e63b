package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const testAuthToken = "test-auth-token"

func newProtectedApp(authToken string) *fiber.App {
	app := fiber.New()
	app.Post("/webhook", ValidateTwilioSignature(authToken), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func signedRequest(t *testing.T, form url.Values, sign func(map[string]string) string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	params := make(map[string]string)
	for k := range form {
		params[k] = form.Get(k)
	}
	req.Header.Set("X-Twilio-Signature", sign(params))
	return req
}

func TestValidateTwilioSignature_Accepts(t *testing.T) {
	app := newProtectedApp(testAuthToken)
	form := url.Values{"From": {"whatsapp:+79161234567"}, "Body": {"hello"}}

	req := signedRequest(t, form, func(params map[string]string) string {
		return computeSignature(testAuthToken, "http://example.com/webhook", params)
	})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid signature rejected: %d", resp.StatusCode)
	}
}

func TestValidateTwilioSignature_RejectsWrongToken(t *testing.T) {
	app := newProtectedApp(testAuthToken)
	form := url.Values{"From": {"whatsapp:+79161234567"}, "Body": {"hello"}}

	req := signedRequest(t, form, func(params map[string]string) string {
		return computeSignature("other-token", "http://example.com/webhook", params)
	})

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("forged signature must get 401, got %d", resp.StatusCode)
	}
}

func TestValidateTwilioSignature_RejectsTamperedBody(t *testing.T) {
	app := newProtectedApp(testAuthToken)

	signed := url.Values{"From": {"whatsapp:+79161234567"}, "Body": {"hello"}}
	sig := computeSignature(testAuthToken, "http://example.com/webhook", map[string]string{
		"From": signed.Get("From"), "Body": signed.Get("Body"),
	})

	tampered := url.Values{"From": {"whatsapp:+79161234567"}, "Body": {"transfer everything"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tampered.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tampered body must get 401, got %d", resp.StatusCode)
	}
}

func TestValidateTwilioSignature_MissingHeader(t *testing.T) {
	app := newProtectedApp(testAuthToken)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("Body=hello"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unsigned request must get 401, got %d", resp.StatusCode)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomsflightclub/flightclub/internal/pkg/env"
)

func newCronTestApp(t *testing.T, secret string) *fiber.App {
	t.Helper()

	previous := env.Env
	env.Env = map[string]string{}
	if secret != "" {
		env.Env["CRON_SECRET"] = secret
	}
	t.Cleanup(func() { env.Env = previous })

	app := fiber.New()
	app.Post("/internal/trigger", CronSecretMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestCronSecretMiddleware(t *testing.T) {
	t.Run("unconfigured secret disables the endpoint", func(t *testing.T) {
		app := newCronTestApp(t, "")

		req := httptest.NewRequest(http.MethodPost, "/internal/trigger", nil)
		req.Header.Set("X-Cron-Secret", "anything")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("missing credential is unauthorized", func(t *testing.T) {
		app := newCronTestApp(t, "s3cret")

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/internal/trigger", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong credential is unauthorized", func(t *testing.T) {
		app := newCronTestApp(t, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/internal/trigger", nil)
		req.Header.Set("X-Cron-Secret", "wrong")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("header credential passes", func(t *testing.T) {
		app := newCronTestApp(t, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/internal/trigger", nil)
		req.Header.Set("X-Cron-Secret", "s3cret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("bearer credential passes", func(t *testing.T) {
		app := newCronTestApp(t, "s3cret")

		req := httptest.NewRequest(http.MethodPost, "/internal/trigger", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

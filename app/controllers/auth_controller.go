package controllers

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/tomsflightclub/flightclub/app/models"
	"github.com/tomsflightclub/flightclub/internal/pkg/database"
	"github.com/tomsflightclub/flightclub/internal/pkg/env"
	"github.com/tomsflightclub/flightclub/internal/pkg/mail"
	"github.com/tomsflightclub/flightclub/internal/pkg/session"
)

const (
	AUTH_KEY       string = "authenticated"
	USER_ID        string = "user_id"
	USER_NAME      string = "username"
	USER_IS_ADMIN  string = "isAdmin"
	FROM_PROTECTED string = "from_protected"
)

func HandleAuthLogin(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		var user models.User
		fm := fiber.Map{
			"type": "error",
		}

		// notice: in production you should not inform the user
		// with detailed messages about login failures
		result := database.GetDB().Where("email = ?", c.FormValue("email")).First(&user)
		if result.Error != nil {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if models.CheckPasswordHash(c.FormValue("password"), user.Password) == false {
			fm["message"] = "There is a problem with the login process"

			return flash.WithError(c, fm).Redirect("/login")
		}

		if !user.IsActive() {
			fm["message"] = "Please confirm your email address first"

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess, err := session.GetSessionStore().Get(c)
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		sess.Set(AUTH_KEY, true)
		sess.Set(USER_ID, user.ID)
		sess.Set(USER_NAME, user.Name)
		sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
		sess.Set("user_plan", user.Plan)

		err = sess.Save()
		if err != nil {
			fm["message"] = fmt.Sprintf("something went wrong: %s", err)

			return flash.WithError(c, fm).Redirect("/login")
		}

		database.GetDB().Model(&user).Update("last_login_at", time.Now())
		log.Printf("auth: user %d logged in from %s", user.ID, GetClientIP(c))

		fm = fiber.Map{
			"type":    "success",
			"message": "Welcome back! Your next deal is on its way.",
		}

		return flash.WithSuccess(c, fm).Redirect("/")
	}

	return c.Render("auth/login", fiber.Map{
		"Title":         "Log in",
		"FromProtected": isLoggedIn(c),
		"Flash":         flash.Get(c),
		"CSRF":          csrfToken(c),
	})
}

func HandleAuthLogout(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type": "error",
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		fm["message"] = "logged out (no sess)"

		return flash.WithError(c, fm).Redirect("/login")
	}

	err = sess.Destroy()
	if err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Bye bye! See you at the gate.",
	}

	c.Locals(FROM_PROTECTED, false)

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func HandleAuthRegister(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		user, err := models.CreateUser(c.FormValue("username"), c.FormValue("email"), c.FormValue("password"))
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		// A home city is optional at signup; without one the digest falls
		// back to deals from all origin cities.
		user.HomeCity = c.FormValue("home_city")

		if err := user.GenerateActivationToken(); err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		err = database.GetDB().Create(&user).Error
		if err != nil {
			fm := fiber.Map{
				"type":    "error",
				"message": fmt.Sprintf("something went wrong: %s", err),
			}

			return flash.WithError(c, fm).Redirect("/register")
		}

		// New accounts start on the daily cadence, subscribed.
		if _, err := models.GetOrCreateEmailPreference(database.GetDB(), user.ID); err != nil {
			log.Printf("auth: failed to create default email preference for user %d: %v", user.ID, err)
		}

		go sendActivationMail(user)

		fm := fiber.Map{
			"type":    "success",
			"message": "Almost there! Check your inbox to confirm your email address.",
		}

		return flash.WithSuccess(c, fm).Redirect("/login")
	}

	return c.Render("auth/register", fiber.Map{
		"Title":         "Sign up",
		"FromProtected": isLoggedIn(c),
		"Flash":         flash.Get(c),
		"CSRF":          csrfToken(c),
	})
}

// HandleAuthActivate confirms the email address behind an activation token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := c.Query("token")
	fm := fiber.Map{
		"type": "error",
	}

	if token == "" {
		fm["message"] = "Activation token is missing"

		return flash.WithError(c, fm).Redirect("/login")
	}

	var user models.User
	result := database.GetDB().Where("activation_token = ?", token).First(&user)
	if result.Error != nil {
		fm["message"] = "Invalid or expired activation link"

		return flash.WithError(c, fm).Redirect("/login")
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := database.GetDB().Save(&user).Error; err != nil {
		fm["message"] = fmt.Sprintf("something went wrong: %s", err)

		return flash.WithError(c, fm).Redirect("/login")
	}

	fm = fiber.Map{
		"type":    "success",
		"message": "Your account is active. Log in and pick your home airport!",
	}

	return flash.WithSuccess(c, fm).Redirect("/login")
}

func sendActivationMail(user *models.User) {
	base := env.GetEnv("PUBLIC_DOMAIN", "")
	link := fmt.Sprintf("%s/activate?token=%s", base, user.ActivationToken)

	body := fmt.Sprintf(
		"<h2>Welcome aboard, %s!</h2>"+
			"<p>Confirm your email address to start receiving flight deals:</p>"+
			`<p><a href="%s">Activate my account</a></p>`,
		user.Name, link,
	)

	if err := mail.SendMail(user.Email, "Confirm your email address", body); err != nil {
		log.Printf("auth: failed to send activation mail to user %d: %v", user.ID, err)
	}
}

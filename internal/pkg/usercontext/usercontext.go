package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext is the session-derived identity attached to every request by
// the user context middleware. Plan is the session-cached plan string and is
// advisory only; entitlement checks resolve live subscription and trial
// state instead of trusting it.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	Plan       string `json:"plan"`
}

// GetUserContext returns the request's user context. Requests that never
// passed through the middleware (or whose session failed to load) get an
// anonymous context.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// IsLoggedIn reports whether the request carries an authenticated session.
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin reports whether the session user holds the admin role.
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the session user's ID, zero for anonymous requests.
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetUsername returns the session user's display name.
func GetUsername(c *fiber.Ctx) string {
	return GetUserContext(c).Username
}

package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"

	// License token claims attached by the license auth middleware
	KeyLicenseSubject = "license_subject"
	KeyLicensePlan    = "license_plan"
	KeyLicenseTokenID = "license_token_id"
)

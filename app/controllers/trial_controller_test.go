package controllers

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/licensing"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

// resetActivationLimiter drops the cached limiter so each test binds one to
// its own Redis instance.
func resetActivationLimiter() {
	activationLimiterOnce = sync.Once{}
	activationLimiter = nil
}

// fakeTrialRepo is an in-memory TrialRepository with the same observable
// semantics as the GORM implementation: idempotent create, fingerprint
// markers that outlive their trial row, and one extension per account.
type fakeTrialRepo struct {
	trials        map[string]*models.TrialLicense
	fingerprints  map[string]string
	userTrials    map[uint]*models.UserTrial
	extendedUsers map[uint]bool
}

func newFakeTrialRepo() *fakeTrialRepo {
	return &fakeTrialRepo{
		trials:        make(map[string]*models.TrialLicense),
		fingerprints:  make(map[string]string),
		userTrials:    make(map[uint]*models.UserTrial),
		extendedUsers: make(map[uint]bool),
	}
}

func (r *fakeTrialRepo) GetByInstallationID(installationID string) (*models.TrialLicense, error) {
	trial, ok := r.trials[installationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return trial, nil
}

func (r *fakeTrialRepo) CreateIfAbsent(trial *models.TrialLicense, fingerprintHash string) (bool, *models.TrialLicense, error) {
	if existing, ok := r.trials[trial.InstallationID]; ok {
		return false, existing, nil
	}
	trial.CreatedAt = time.Now()
	r.trials[trial.InstallationID] = trial
	if _, ok := r.fingerprints[fingerprintHash]; !ok {
		r.fingerprints[fingerprintHash] = trial.InstallationID
	}
	return true, trial, nil
}

func (r *fakeTrialRepo) FingerprintUsed(fingerprintHash string) (bool, error) {
	_, ok := r.fingerprints[fingerprintHash]
	return ok, nil
}

func (r *fakeTrialRepo) ExtendTrial(installationID string, userID uint, email string) (*models.TrialLicense, error) {
	trial, ok := r.trials[installationID]
	if !ok {
		return nil, repository.ErrTrialNotFound
	}
	core := trial.ToCore()
	if check := licensing.CanExtendTrial(&core); !check.Allowed {
		switch check.Reason {
		case licensing.ReasonAlreadyExtended:
			return nil, repository.ErrTrialAlreadyExtended
		case licensing.ReasonTrialExpired:
			return nil, repository.ErrTrialExpired
		default:
			return nil, repository.ErrTrialNotFound
		}
	}
	if r.extendedUsers[userID] {
		return nil, repository.ErrTrialAlreadyExtended
	}
	now := time.Now()
	trial.Extended = true
	trial.ExpiresAt = licensing.ExtendedExpiry(trial.ExpiresAt)
	trial.UserID = &userID
	trial.Email = email
	trial.ExtendedAt = &now
	r.extendedUsers[userID] = true
	return trial, nil
}

func (r *fakeTrialRepo) GetUserTrial(userID uint) (*models.UserTrial, error) {
	trial, ok := r.userTrials[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return trial, nil
}

func (r *fakeTrialRepo) CreateUserTrial(trial *models.UserTrial) (bool, *models.UserTrial, error) {
	if existing, ok := r.userTrials[trial.UserID]; ok {
		return false, existing, nil
	}
	r.userTrials[trial.UserID] = trial
	return true, trial, nil
}

func (r *fakeTrialRepo) CountActive() (int64, error)                { return 0, nil }
func (r *fakeTrialRepo) CountCreatedSince(time.Time) (int64, error) { return 0, nil }

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) Create(*models.User) error { return nil }

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByActivationToken(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByAPIKeyHash(string) (*models.User, *models.UserSettings, error) {
	return nil, nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(*models.User) error                  { return nil }
func (r *fakeUserRepo) Delete(uint) error                          { return nil }
func (r *fakeUserRepo) Count() (int64, error)                      { return 0, nil }
func (r *fakeUserRepo) CountCreatedSince(time.Time) (int64, error) { return 0, nil }

const trialTestUserID = uint(7)

func setupTrialTest(t *testing.T) *fakeTrialRepo {
	t.Helper()
	t.Setenv("LICENSE_TOKEN_SECRET", "trial-secret")
	setupUsageRedis(t)
	resetActivationLimiter()
	t.Cleanup(resetActivationLimiter)

	trials := newFakeTrialRepo()
	users := &fakeUserRepo{users: map[uint]*models.User{
		trialTestUserID: {
			ID:     trialTestUserID,
			Name:   "dev",
			Email:  "dev@example.com",
			Status: models.STATUS_ACTIVE,
		},
	}}

	repository.ResetGlobalFactory()
	repository.SetGlobalFactory(repository.NewFactoryWithRepositories(&repository.Repositories{
		User:  users,
		Trial: trials,
	}))
	t.Cleanup(repository.ResetGlobalFactory)
	return trials
}

func trialActivateApp() *fiber.App {
	app := fiber.New()
	app.Post("/trial/activate", HandleTrialActivate)
	return app
}

func trialExtendApp(userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:     userID,
			Username:   "dev",
			IsLoggedIn: true,
		})
		return c.Next()
	})
	app.Post("/trial/extend", HandleTrialExtend)
	return app
}

func activationBody(installationID string) string {
	return fmt.Sprintf(
		`{"installation_id":%q,"browser":"Chrome","os":"macOS","timezone":"Europe/Berlin"}`,
		installationID,
	)
}

func TestHandleTrialActivateIdempotent(t *testing.T) {
	setupTrialTest(t)
	app := trialActivateApp()

	status, first := postJSON(t, app, "/trial/activate", activationBody("install-aaaa111122"))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "trial", first["plan"])
	assert.Equal(t, float64(3), first["days_remaining"])
	require.NotEmpty(t, first["token"])

	// Re-activating a running trial hands back the stored grant, so the
	// token string is byte-identical to the first one.
	status, second := postJSON(t, app, "/trial/activate", activationBody("install-aaaa111122"))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first["token"], second["token"])
	assert.Equal(t, first["expires_at"], second["expires_at"])
}

func TestHandleTrialActivateExpiredTrialStaysExpired(t *testing.T) {
	trials := setupTrialTest(t)
	trials.trials["install-bbbb111122"] = &models.TrialLicense{
		InstallationID: "install-bbbb111122",
		Browser:        "Chrome",
		OS:             "macOS",
		TokenID:        "tok-expired",
		CreatedAt:      time.Now().Add(-10 * 24 * time.Hour),
		ExpiresAt:      time.Now().Add(-7 * 24 * time.Hour),
	}

	status, body := postJSON(t, trialActivateApp(), "/trial/activate", activationBody("install-bbbb111122"))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, licensing.ReasonTrialExpired, body["reason"])
}

func TestHandleTrialActivateFingerprintReuse(t *testing.T) {
	trials := setupTrialTest(t)

	// A fingerprint marker without a matching trial row is the trace of a
	// device that already consumed its trial under another installation ID.
	fp := licensing.DeviceFingerprint{
		InstallationID: "install-cccc111122",
		Browser:        "Chrome",
		OS:             "macOS",
		Timezone:       "Europe/Berlin",
	}
	trials.fingerprints[licensing.FingerprintHash(fp)] = "install-old-11112222"

	status, body := postJSON(t, trialActivateApp(), "/trial/activate", activationBody("install-cccc111122"))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, licensing.ReasonTrialAlreadyUsed, body["reason"])
}

func TestHandleTrialActivateRateLimited(t *testing.T) {
	setupTrialTest(t)
	app := trialActivateApp()

	for i := 0; i < 5; i++ {
		status, _ := postJSON(t, app, "/trial/activate", activationBody(fmt.Sprintf("install-%d-11112222", i)))
		require.Equal(t, fiber.StatusOK, status)
	}

	status, body := postJSON(t, app, "/trial/activate", activationBody("install-5-11112222"))
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", body["error"])
}

func TestHandleTrialExtendOncePerAccount(t *testing.T) {
	trials := setupTrialTest(t)
	for _, id := range []string{"install-dddd111122", "install-eeee111122"} {
		trials.trials[id] = &models.TrialLicense{
			InstallationID: id,
			Browser:        "Chrome",
			OS:             "macOS",
			TokenID:        "tok-" + id,
			CreatedAt:      time.Now().Add(-24 * time.Hour),
			ExpiresAt:      time.Now().Add(48 * time.Hour),
		}
	}
	app := trialExtendApp(trialTestUserID)

	status, body := postJSON(t, app, "/trial/extend", `{"installation_id":"install-dddd111122"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["extended"])
	assert.Equal(t, float64(5), body["days_remaining"])
	assert.NotEmpty(t, body["token"])

	// The same trial reports already_extended via its own flag.
	status, body = postJSON(t, app, "/trial/extend", `{"installation_id":"install-dddd111122"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, licensing.ReasonAlreadyExtended, body["reason"])

	// A different, still-extensible trial is blocked by the per-account rule.
	status, body = postJSON(t, app, "/trial/extend", `{"installation_id":"install-eeee111122"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, licensing.ReasonAlreadyExtended, body["reason"])
}

func TestHandleTrialExtendUnknownInstallation(t *testing.T) {
	setupTrialTest(t)

	status, body := postJSON(t, trialExtendApp(trialTestUserID), "/trial/extend", `{"installation_id":"install-ffff111122"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, licensing.ReasonNoTrial, body["reason"])
}

func TestHandleTrialExtendExpiredBeyondGrace(t *testing.T) {
	trials := setupTrialTest(t)
	trials.trials["install-gggg111122"] = &models.TrialLicense{
		InstallationID: "install-gggg111122",
		Browser:        "Chrome",
		OS:             "macOS",
		TokenID:        "tok-lapsed",
		CreatedAt:      time.Now().Add(-30 * 24 * time.Hour),
		ExpiresAt:      time.Now().Add(-27 * 24 * time.Hour),
	}

	status, body := postJSON(t, trialExtendApp(trialTestUserID), "/trial/extend", `{"installation_id":"install-gggg111122"}`)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, licensing.ReasonTrialExpired, body["reason"])
}

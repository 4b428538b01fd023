package licensing

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DeviceFingerprint is a coarse device-similarity signal reported by the
// extension at trial activation. It is an anti-abuse heuristic only and must
// never be treated as an authentication credential: every field is
// client-reported and trivially forgeable.
type DeviceFingerprint struct {
	InstallationID string `json:"installation_id" validate:"required,min=10"`
	Browser        string `json:"browser" validate:"required"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os" validate:"required"`
	OSVersion      string `json:"os_version"`
	Timezone       string `json:"timezone"`
	Language       string `json:"language"`
	ScreenClass    string `json:"screen_class"`
}

var fingerprintValidator = validator.New()

// ValidateFingerprint is a sanity check on activation input, not a security
// boundary. Fields are trimmed before the struct tags run so whitespace
// padding cannot satisfy the length rules.
func ValidateFingerprint(fp DeviceFingerprint) bool {
	fp.InstallationID = strings.TrimSpace(fp.InstallationID)
	fp.Browser = strings.TrimSpace(fp.Browser)
	fp.OS = strings.TrimSpace(fp.OS)
	return fingerprintValidator.Struct(fp) == nil
}

// FingerprintHash derives the duplicate-device key checked before a new
// trial is granted. Deterministic lowercase join; collisions across
// genuinely different devices are acceptable noise for this purpose.
func FingerprintHash(fp DeviceFingerprint) string {
	return strings.ToLower(fmt.Sprintf("%s::%s::%s::%s",
		strings.TrimSpace(fp.InstallationID),
		strings.TrimSpace(fp.Browser),
		strings.TrimSpace(fp.OS),
		strings.TrimSpace(fp.Timezone),
	))
}

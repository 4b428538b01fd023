package licensing

import "testing"

func validTestFingerprint() DeviceFingerprint {
	return DeviceFingerprint{
		InstallationID: "abc123xyz9",
		Browser:        "Chrome",
		BrowserVersion: "127.0",
		OS:             "macOS",
		OSVersion:      "14.5",
		Timezone:       "Europe/Berlin",
		Language:       "de-DE",
		ScreenClass:    "desktop",
	}
}

func TestValidateFingerprint(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DeviceFingerprint)
		want   bool
	}{
		{"valid", func(fp *DeviceFingerprint) {}, true},
		{"short installation id", func(fp *DeviceFingerprint) { fp.InstallationID = "short" }, false},
		{"whitespace installation id", func(fp *DeviceFingerprint) { fp.InstallationID = "          " }, false},
		{"missing browser", func(fp *DeviceFingerprint) { fp.Browser = "" }, false},
		{"missing os", func(fp *DeviceFingerprint) { fp.OS = " " }, false},
		{"optional fields empty", func(fp *DeviceFingerprint) {
			fp.Timezone = ""
			fp.Language = ""
			fp.ScreenClass = ""
		}, true},
	}

	for _, tt := range tests {
		fp := validTestFingerprint()
		tt.mutate(&fp)
		if got := ValidateFingerprint(fp); got != tt.want {
			t.Fatalf("%s: ValidateFingerprint = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFingerprintHashDeterministic(t *testing.T) {
	a := FingerprintHash(validTestFingerprint())
	b := FingerprintHash(validTestFingerprint())
	if a != b {
		t.Fatalf("hash not deterministic: %q vs %q", a, b)
	}
	if a != "abc123xyz9::chrome::macos::europe/berlin" {
		t.Fatalf("unexpected hash %q", a)
	}
}

func TestFingerprintHashIgnoresVersionChurn(t *testing.T) {
	fp := validTestFingerprint()
	base := FingerprintHash(fp)

	fp.BrowserVersion = "128.0"
	fp.OSVersion = "15.0"
	fp.Language = "en-US"
	fp.ScreenClass = "laptop"
	if FingerprintHash(fp) != base {
		t.Fatal("hash should only depend on installation id, browser, os and timezone")
	}

	fp.Timezone = "America/New_York"
	if FingerprintHash(fp) == base {
		t.Fatal("timezone change should alter the hash")
	}
}

package mail

import "fmt"

// TrialStartedEmail returns subject and body for the trial activation notice.
func TrialStartedEmail(daysRemaining int) (string, string) {
	subject := "Your LogLens trial has started"
	body := fmt.Sprintf(
		"<p>Your LogLens trial is now active.</p>"+
			"<p>You have full access to all Pro features for the next %d days, "+
			"including structured output formats and higher relay limits.</p>"+
			"<p>Create an account before the trial ends to keep your settings.</p>",
		daysRemaining,
	)
	return subject, body
}

// TrialExtendedEmail returns subject and body sent after a one-time trial extension.
func TrialExtendedEmail(daysRemaining int) (string, string) {
	subject := "Your LogLens trial was extended"
	body := fmt.Sprintf(
		"<p>Thanks for creating an account. Your trial was extended and now has "+
			"%d days remaining.</p>",
		daysRemaining,
	)
	return subject, body
}

// TrialExpiringEmail returns subject and body for the expiry reminder.
func TrialExpiringEmail(daysRemaining int) (string, string) {
	subject := "Your LogLens trial is ending soon"
	body := fmt.Sprintf(
		"<p>Your LogLens trial ends in %d day(s).</p>"+
			"<p>Upgrade to Pro to keep unlimited console capture and all output formats.</p>",
		daysRemaining,
	)
	return subject, body
}

// SubscriptionActivatedEmail returns subject and body after a successful upgrade.
func SubscriptionActivatedEmail(plan string) (string, string) {
	subject := "Welcome to LogLens Pro"
	body := fmt.Sprintf(
		"<p>Your %s subscription is active. Thanks for supporting LogLens!</p>",
		plan,
	)
	return subject, body
}

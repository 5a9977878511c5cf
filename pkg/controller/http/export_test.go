package http

var (
	VerifyTwilioSignature = verifyTwilioSignature
	WebhookURL            = webhookURL
)

package handler

const (
	msgUnauthorized       = "Unauthorized."
	msgInvalidCredentials = "Invalid email or password."
	msgAccountLocked      = "User account is locked."
	msgEmailNotConfirmed  = "Email address is not confirmed."
	msgTokenInvalid       = "Token is invalid or expired."
	msgUserExists         = "User already exists."
	msgUserNotFound       = "User not found."
	msgMalformedRequest   = "Malformed request."
	msgProviderMismatch   = "Unsupported identity provider."
	msgRedirectMissing    = "Redirect Uri is missing or invalid."
	msgTooManyRequests    = "Too many requests, slow down."
	msgInvalidBody        = "Request body is not valid JSON."

	msgEmailConfirmed    = "Email confirmed."
	msgConfirmationSent  = "If the account exists and is unconfirmed, a new confirmation email was sent."
	msgOTPSent           = "A one-time login link was sent to your email."
	msgResetRequested    = "If the account exists, a password reset email was sent."
	msgPasswordChanged   = "Password changed."
	msgConfirmationAwait = "Check your inbox to confirm your email address."
)

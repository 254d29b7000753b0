package constants

const (
	// Rate limits (requests per minute)
	GlobalAuthLimit   = 60 // Login/signup endpoints
	GlobalVerifyLimit = 30 // Verification-code endpoints
)

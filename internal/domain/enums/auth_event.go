package enums

type AuthEvent string

const (
	AuthEventSignedIn        AuthEvent = "SIGNED_IN"
	AuthEventSignedOut       AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed  AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated     AuthEvent = "USER_UPDATED"
	AuthEventPasswordChanged AuthEvent = "PASSWORD_CHANGED"
	AuthEventUserDeleted     AuthEvent = "USER_DELETED"
	AuthEventWalletUpdated   AuthEvent = "WALLET_UPDATED"
)

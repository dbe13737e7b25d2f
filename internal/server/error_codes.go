package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidJSON     = 1001
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidID       = 1004
	ErrCodeInvalidKind     = 1005
	ErrCodeMissingRequired = 1006
	ErrCodeInvalidSort     = 1007

	// Domain state (2xxx)
	ErrCodeAssetNotFound   = 2001
	ErrCodeScoreNotFound   = 2002
	ErrCodeContentNotFound = 2003
	ErrCodeConflict        = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002

	// Storage tier (5xxx)
	ErrCodePayloadTooLarge         = 5001
	ErrCodeExternalTierUnavailable = 5002
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeAssetNotFound
	case 409:
		return ErrCodeConflict
	case 413:
		return ErrCodePayloadTooLarge
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}

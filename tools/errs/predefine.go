package errs

// Error taxonomy. 10xx authentication, 11xx validation, 12xx persistence,
// 19xx internal.
var (
	ErrAuthRequired = New(1001, "authentication required")
	ErrTokenInvalid = New(1002, "invalid or expired token")
	ErrUserNotFound = New(1003, "user not found")
	ErrUserInactive = New(1004, "user is inactive")
	ErrForbidden    = New(1005, "forbidden")

	ErrValidation   = New(1101, "validation failed")
	ErrInvalidRoom  = New(1102, "invalid room name")
	ErrEmptyContent = New(1103, "message content is required")

	ErrPersistence = New(1201, "persistence failed")
	ErrDuplicate   = New(1202, "record already exists")
	ErrNotFound    = New(1203, "record not found")

	ErrInternal = New(1901, "internal error")
)

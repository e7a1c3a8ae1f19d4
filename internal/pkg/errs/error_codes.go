/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1002

	// ErrRouteNotFound indicates that the requested route does not exist.
	ErrRouteNotFound = 1003
)

// 2xxx: Presence and Messaging Business Logic Errors
const (
	// ErrInvalidCoordinates indicates that a location payload carried non-finite
	// or otherwise unusable latitude/longitude values.
	ErrInvalidCoordinates = 2001

	// ErrMessageContentTooLong indicates that a chat message exceeded the maximum length limit.
	ErrMessageContentTooLong = 2002

	// ErrOriginNotAllowed indicates that a WebSocket upgrade came from a disallowed origin.
	ErrOriginNotAllowed = 2003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)

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

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Channel, Moderation, and Content Business Logic Errors
const (
	// ErrChannelNotFound indicates that the referenced channel id does not exist (or was dissolved).
	ErrChannelNotFound = 2101

	// ErrNotChannelOwner indicates that the acting user is not the channel creator and
	// therefore may not administer the channel.
	ErrNotChannelOwner = 2102

	// ErrChannelBanned indicates that the user is banned from the channel and may not join it.
	ErrChannelBanned = 2103

	// ErrChannelPasswordWrong indicates that the supplied password does not match the channel password.
	ErrChannelPasswordWrong = 2104

	// ErrChannelMuted indicates that the user is muted in the channel and may not post messages.
	ErrChannelMuted = 2105

	// ErrInvalidChannelAction indicates that an unrecognized manage-channel action name was supplied.
	ErrInvalidChannelAction = 2106

	// ErrCreatorImmune indicates a moderation action that would strip the channel creator's membership.
	ErrCreatorImmune = 2107

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that an attachment exceeded the allowed file size.
	ErrFileSizeTooLarge = 2202

	// ErrAttachmentCountInvalid indicates an invalid number of attachments on a single message.
	ErrAttachmentCountInvalid = 2203

	// ErrAttachmentKeyInvalid indicates an attachment key outside the channel's storage prefix.
	ErrAttachmentKeyInvalid = 2204
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrAlreadyLoggedIn indicates a register or login attempt from an already authenticated session.
	ErrAlreadyLoggedIn = 3004

	// ErrInvalidUsername indicates the username fails the format requirements.
	ErrInvalidUsername = 3005

	// ErrInvalidPassword indicates the password fails the length requirements.
	ErrInvalidPassword = 3006

	// ErrUserAlreadyExists indicates a registration attempt with a username that is taken.
	ErrUserAlreadyExists = 3007

	// ErrInvalidCredentials indicates a login attempt with a wrong username or password.
	ErrInvalidCredentials = 3008

	// ErrUnauthorized indicates the request requires an authenticated identity.
	ErrUnauthorized = 3009
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreFailed indicates that a persistence layer operation failed.
	ErrStoreFailed = 5001

	// ErrFileStorageFailed indicates that the attachment storage service failed.
	ErrFileStorageFailed = 5002
)

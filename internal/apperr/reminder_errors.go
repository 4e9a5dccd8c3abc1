package apperr

var (
	ErrUnparseableTime    = InvalidArg("could not understand that time format")
	ErrPastTime           = InvalidArg("the specified time must be in the future")
	ErrInvalidReminder    = InvalidArg("reminder needs a user, a channel and content")
	ErrInteractionTimeout = New(CodeDeadlineExceeded, "time's up, the reminder was not created")
	ErrPendingNotFound    = NotFound("no pending reminder for that token")
)

func StorageUnavailable(cause error) error {
	return Wrap(CodeUnavailable, "reminder storage unavailable", cause)
}

func DeliveryFailure(cause error) error {
	return Wrap(CodeUnavailable, "notification delivery failed", cause)
}

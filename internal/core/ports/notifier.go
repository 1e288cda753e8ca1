package ports

import "context"

// VerificationNotice is the out-of-band artifact produced on registration.
type VerificationNotice struct {
	IdentityID string
	Name       string
	Email      string
	Artifact   string
}

// VerificationNotifier accepts a notice for asynchronous delivery.
type VerificationNotifier interface {
	Notify(ctx context.Context, notice VerificationNotice) error
}

// VerificationSender performs the delivery itself (mail, log, ...).
type VerificationSender interface {
	Send(ctx context.Context, notice VerificationNotice) error
}

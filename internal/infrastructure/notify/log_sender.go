// Package notify delivers verification notices produced on registration.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

// LogSender writes the verification link to the log instead of mailing it.
// It stands in for a mail transport in development and single-node setups.
type LogSender struct {
	baseURL *url.URL
	log     zerolog.Logger
}

var _ ports.VerificationSender = (*LogSender)(nil)

func NewLogSender(verifyBaseURL string, log zerolog.Logger) (*LogSender, error) {
	u, err := url.Parse(verifyBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse verify base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("verify base url %q must be absolute", verifyBaseURL)
	}
	return &LogSender{baseURL: u, log: log}, nil
}

// Link returns the verification URL for an artifact.
func (s *LogSender) Link(artifact string) string {
	u := *s.baseURL
	q := u.Query()
	q.Set("token", artifact)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *LogSender) Send(ctx context.Context, notice ports.VerificationNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if notice.Artifact == "" {
		return fmt.Errorf("notice for %s carries no artifact", notice.IdentityID)
	}
	s.log.Info().
		Str("identity_id", notice.IdentityID).
		Str("email", notice.Email).
		Str("link", s.Link(notice.Artifact)).
		Msg("verification link issued")
	return nil
}

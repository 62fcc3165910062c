// Package mail provides the outbound mail transport used for OTP delivery.
package mail

import "context"

// Mailer delivers a single message to a recipient. Implementations must be
// safe for concurrent use; a delivery failure is returned to the caller and
// fails the originating request.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

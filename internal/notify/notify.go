// Package notify carries payment confirmations out of the critical path.
// Delivery is best-effort: the booking flow never waits on it and a lost
// message never reverts a ticket's state.
package notify

import "context"

// Notification is the outbound message for one successful payment.
type Notification struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Dispatcher hands a notification off for delivery, at most once per
// payment. The returned error is for the caller's log only.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

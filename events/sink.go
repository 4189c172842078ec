package events

import "context"

// Sink ist das Interface, das jeder Empfänger von Registry-Notifications
// implementieren muss (z.B. Log, Webhook, Persistenz-Journal).
type Sink interface {
	// Deliver stellt ein einzelnes Event zu. Ein Fehler wird geloggt,
	// rollt aber niemals die bereits committete Mutation zurück.
	Deliver(ctx context.Context, ev Event) error

	// Name gibt den eindeutigen Namen des Sinks zurück (z.B. "webhook").
	Name() string
}

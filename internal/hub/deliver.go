package hub

import (
	"context"
	"fmt"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/transport"
)

// Signer signs outbound messages. *wallet.Wallet implements it.
type Signer interface {
	ID() string
	Sign(m *transport.Message) error
}

// TransportDeliverer fans events out as signed Event messages.
type TransportDeliverer struct {
	Sender transport.Sender
	Signer Signer
}

// Deliver sends e to recipient.
func (d TransportDeliverer) Deliver(ctx context.Context, recipient string, e event.Event) error {
	m, err := transport.NewMessage(recipient, d.Signer.ID(), transport.ActionEvent, e)
	if err != nil {
		return err
	}
	if err := d.Signer.Sign(&m); err != nil {
		return fmt.Errorf("sign fan-out message: %w", err)
	}
	return d.Sender.Send(ctx, m)
}

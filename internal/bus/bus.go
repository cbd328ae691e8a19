// Package bus defines the message types that flow between chat channels and
// the conversation core, and the buffered bus that decouples them.
package bus

// Channel identifies a message source or destination.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelSlack    Channel = "slack"
	ChannelCLI      Channel = "cli"
	ChannelCron     Channel = "cron"
	ChannelSystem   Channel = "system"
)

// MessageBus decouples chat channels from the conversation core.
//
// Channels push InboundMessages; the dispatcher consumes them, runs a turn,
// and pushes OutboundMessages back for the channel manager to route. Both
// directions use buffered channels so senders never block on a slow consumer.
type MessageBus struct {
	Inbound  chan InboundMessage  // channels → core
	Outbound chan OutboundMessage // core → channels
}

func NewMessageBus(bufSize int) *MessageBus {
	return &MessageBus{
		Inbound:  make(chan InboundMessage, bufSize),
		Outbound: make(chan OutboundMessage, bufSize),
	}
}

func (b *MessageBus) InboundSize() int { return len(b.Inbound) }

func (b *MessageBus) OutboundSize() int { return len(b.Outbound) }

package listctl

// Variant classifies a user-visible notification.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantDanger  Variant = "danger"
)

// Notification is a fire-and-forget message for the user.
type Notification struct {
	Variant     Variant
	Title       string
	Description string
}

// Notifier delivers notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// ChanNotifier forwards notifications to a buffered channel, dropping
// them when the reader falls behind.
type ChanNotifier struct {
	C chan Notification
}

// NewChanNotifier returns a ChanNotifier with the given buffer size.
func NewChanNotifier(size int) *ChanNotifier {
	return &ChanNotifier{C: make(chan Notification, size)}
}

// Notify queues n without blocking.
func (c *ChanNotifier) Notify(n Notification) {
	select {
	case c.C <- n:
	default:
	}
}

package types

type SlotState string

const (
	SlotNotRequested SlotState = "not_requested"
	SlotLoading      SlotState = "loading"
	SlotReady        SlotState = "ready"
	SlotFailed       SlotState = "failed"
)

// Slot holds one enrichment. Content is only set when Ready, Message only when Failed.
type Slot struct {
	State   SlotState `json:"state"`
	Content string    `json:"content,omitempty"`
	Message string    `json:"message,omitempty"`
}

func NotRequested() Slot { return Slot{State: SlotNotRequested} }

func Loading() Slot { return Slot{State: SlotLoading} }

func Ready(content string) Slot { return Slot{State: SlotReady, Content: content} }

func Failed(message string) Slot { return Slot{State: SlotFailed, Message: message} }

// Value returns the content when the slot is ready.
func (s Slot) Value() (string, bool) {
	if s.State != SlotReady {
		return "", false
	}
	return s.Content, true
}

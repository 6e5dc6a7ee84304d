package screen

// NotificationKind classifies a notification for styling.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
)

// Action is a button offered with a notification.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Action IDs offered by ImageSourcePrompt.
const (
	ActionCamera  = "camera"
	ActionGallery = "gallery"
	ActionCancel  = "cancel"
)

// Notification is a user-visible outcome.
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Actions []Action         `json:"actions,omitempty"`
}

// Presenter displays notifications.
type Presenter interface {
	Notify(n Notification)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(Notification)

func (f PresenterFunc) Notify(n Notification) { f(n) }

// ImageSourcePrompt is the notification asking where the photo comes from.
func ImageSourcePrompt() Notification {
	return Notification{
		Kind:    KindInfo,
		Title:   "Upload Photo",
		Message: "Choose an option",
		Actions: []Action{
			{ID: ActionCamera, Label: "Camera"},
			{ID: ActionGallery, Label: "Gallery"},
			{ID: ActionCancel, Label: "Cancel"},
		},
	}
}

// SourceForAction maps a prompt action to a picker source. ok is false for
// Cancel and unknown actions.
func SourceForAction(id string) (Source, bool) {
	switch id {
	case ActionCamera:
		return SourceCamera, true
	case ActionGallery:
		return SourceGallery, true
	default:
		return 0, false
	}
}

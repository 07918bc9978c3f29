// Package notify defines the user-facing notification payload that responses
// carry for the client to display as a toast.
package notify

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

func Info(title, description string) *Notification {
	return &Notification{Title: title, Description: description, Variant: VariantDefault}
}

func Error(title, description string) *Notification {
	return &Notification{Title: title, Description: description, Variant: VariantDestructive}
}

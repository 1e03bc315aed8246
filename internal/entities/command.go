package entities

// Intent is the classified meaning of an inbound message
type Intent int

const (
	IntentInvalid Intent = iota
	IntentGreeting
	IntentSelection
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentSelection:
		return "selection"
	default:
		return "invalid"
	}
}

// ParsedCommand is the classifier output. Language is always resolved, even
// for invalid input; Category is CategoryNone unless Intent is IntentSelection.
type ParsedCommand struct {
	Intent   Intent
	Category Category
	Language LanguageDescriptor
}

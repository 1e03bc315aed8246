package usecases

import (
	"strings"

	"project_newsbot/internal/entities"
)

// greetings are matched against the whole normalized text
var greetings = map[string]struct{}{
	"hi":     {},
	"hello":  {},
	"hey":    {},
	"menu":   {},
	"start":  {},
	"/start": {},
	"help":   {},
}

// Classify maps normalized tokens to a command. Precedence is fixed:
// greeting, then category selection, then invalid. Unknown language tokens
// fall back to the default language and never make a command invalid.
func Classify(tokens []string) entities.ParsedCommand {
	if _, ok := greetings[strings.Join(tokens, " ")]; ok {
		return entities.ParsedCommand{
			Intent:   entities.IntentGreeting,
			Language: entities.DefaultLanguage(),
		}
	}

	lang := entities.DefaultLanguage()
	if len(tokens) > 1 {
		if l, ok := entities.LanguageByCode(tokens[1]); ok {
			lang = l
		}
	}

	if len(tokens) > 0 {
		if c, ok := entities.CategoryByKey(tokens[0]); ok {
			return entities.ParsedCommand{
				Intent:   entities.IntentSelection,
				Category: c.ID,
				Language: lang,
			}
		}
	}

	return entities.ParsedCommand{Intent: entities.IntentInvalid, Language: lang}
}

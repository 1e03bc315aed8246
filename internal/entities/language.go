package entities

// Language is the closed set of reply languages
type Language int

const (
	LanguageEnglish Language = iota
	LanguageHindi
	LanguageTamil
	LanguageTelugu
	LanguageMarathi
	LanguageFrench
	LanguageSpanish
)

// DefaultLanguageID is used whenever a command names no language or an unsupported one
const DefaultLanguageID = LanguageEnglish

// LanguageDescriptor carries the static data attached to a Language
type LanguageDescriptor struct {
	ID          Language `json:"-"`
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	Indicator   string   `json:"indicator"`
}

var languageTable = []LanguageDescriptor{
	{ID: LanguageEnglish, Code: "en", DisplayName: "English", Indicator: "🇬🇧 English"},
	{ID: LanguageHindi, Code: "hi", DisplayName: "Hindi", Indicator: "🇮🇳 हिन्दी"},
	{ID: LanguageTamil, Code: "ta", DisplayName: "Tamil", Indicator: "🇮🇳 தமிழ்"},
	{ID: LanguageTelugu, Code: "te", DisplayName: "Telugu", Indicator: "🇮🇳 తెలుగు"},
	{ID: LanguageMarathi, Code: "mr", DisplayName: "Marathi", Indicator: "🇮🇳 मराठी"},
	{ID: LanguageFrench, Code: "fr", DisplayName: "French", Indicator: "🇫🇷 Français"},
	{ID: LanguageSpanish, Code: "es", DisplayName: "Spanish", Indicator: "🇪🇸 Español"},
}

var languageIndex = func() map[string]Language {
	idx := make(map[string]Language, len(languageTable))
	for _, d := range languageTable {
		idx[d.Code] = d.ID
	}
	return idx
}()

// Descriptor returns the static data for l
func (l Language) Descriptor() (LanguageDescriptor, bool) {
	if l < 0 || int(l) >= len(languageTable) {
		return LanguageDescriptor{}, false
	}
	return languageTable[l], true
}

func (l Language) String() string {
	if d, ok := l.Descriptor(); ok {
		return d.Code
	}
	return "unknown"
}

// LanguageByCode resolves a lowercase ISO-like code such as "hi"
func LanguageByCode(code string) (LanguageDescriptor, bool) {
	l, ok := languageIndex[code]
	if !ok {
		return LanguageDescriptor{}, false
	}
	return l.Descriptor()
}

// DefaultLanguage returns the fallback reply language
func DefaultLanguage() LanguageDescriptor {
	return languageTable[DefaultLanguageID]
}

// AllLanguages returns the supported languages in declaration order
func AllLanguages() []LanguageDescriptor {
	out := make([]LanguageDescriptor, len(languageTable))
	copy(out, languageTable)
	return out
}

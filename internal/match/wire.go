package match

// Response is the body of a /v2/check reply. Only the fields the client
// consumes are declared; everything else is dropped by the decoder.
type Response struct {
	Matches  []RawMatch   `json:"matches"`
	Language *RawLanguage `json:"language,omitempty"`
}

// RawLanguage describes the language the engine checked against.
type RawLanguage struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Detected *struct {
		Name       string  `json:"name"`
		Code       string  `json:"code"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
}

// RawMatch is one element of the matches array as the engine sends it.
// Offsets and lengths are in UTF-16 code units.
type RawMatch struct {
	Message      string           `json:"message"`
	ShortMessage string           `json:"shortMessage"`
	Replacements []RawReplacement `json:"replacements"`
	Offset       int              `json:"offset"`
	Length       int              `json:"length"`
	Context      RawContext       `json:"context"`
	Sentence     string           `json:"sentence"`
	Rule         RawRule          `json:"rule"`
}

// RawReplacement is one suggested replacement.
type RawReplacement struct {
	Value string `json:"value"`
}

// RawContext is the window of text around a match.
type RawContext struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// RawRule identifies the rule that produced a match.
type RawRule struct {
	ID        string      `json:"id"`
	IssueType string      `json:"issueType"`
	Category  RawCategory `json:"category"`
}

// RawCategory is the rule's category.
type RawCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawLanguageEntry is one element of the /v2/languages reply.
type RawLanguageEntry struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	LongCode string `json:"longCode"`
}

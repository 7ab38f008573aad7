package moduleinfo

// Metadata captures static identifiers for the daemon. Centralising the
// values keeps log fields and API payloads consistent.
type Metadata struct {
	Name        string
	BinaryName  string
	Slug        string
	Description string
}

// Info describes the current module.
var Info = Metadata{
	Name:        "Whisperbind",
	BinaryName:  "whisperbindd",
	Slug:        "whisperbind",
	Description: "Go binding and serving layer for the whisper.cpp speech-to-text engine.",
}

// ResultMetadata produces the standard metadata payload attached to
// transcription responses.
func ResultMetadata(modelVariant, language string) map[string]string {
	return map[string]string{
		"generator":     Info.Slug,
		"model_variant": modelVariant,
		"language":      language,
	}
}

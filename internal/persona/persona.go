// Package persona holds the assistant persona catalogue and the
// keyword-cluster scorer that suggests a more relevant persona for a chat
// message mid-conversation.
//
// A [Persona] is a named assistant role the user can select (Guardian,
// Lawyer, Doctor, …). Each persona has an associated [ExpertContext] — a
// weighted set of keyword clusters describing its topic territory. The
// [Scorer] matches normalised chat text against every context except the
// currently active persona's and suggests the best-scoring alternate when it
// clears a fixed threshold.
//
// Scoring is a pure function: no I/O, no mutation, deterministic for
// identical inputs and configuration.
package persona

// Persona is a named assistant role the user can converse with.
type Persona struct {
	// ID is the unique persona key (e.g., "lawyer").
	ID string `yaml:"id"`

	// Name is the display name (e.g., "The Lawyer").
	Name string `yaml:"name"`

	// Description is a short blurb shown in persona pickers. Not used by
	// scoring.
	Description string `yaml:"description"`

	// Voice is the TTS voice identifier used when this persona speaks.
	Voice string `yaml:"voice"`

	// Greeting is spoken/shown when the user switches to this persona.
	Greeting string `yaml:"greeting"`
}

// FindByID returns the persona with the given id from personas, or nil when
// no persona matches.
func FindByID(personas []Persona, id string) *Persona {
	for i := range personas {
		if personas[i].ID == id {
			return &personas[i]
		}
	}
	return nil
}

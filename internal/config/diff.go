package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	PersonasChanged bool          // true if any persona identity, voice, or suggestion data changed
	PersonaChanges  []PersonaDiff // per-persona diffs
	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// PersonaDiff describes what changed for a single persona between two configs.
type PersonaDiff struct {
	ID                string
	IdentityChanged   bool // name, description, or greeting
	VoiceChanged      bool
	SuggestionChanged bool // weight or clusters
	Added             bool
	Removed           bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Build persona lookup maps keyed by ID.
	oldPersonas := make(map[string]*PersonaConfig, len(old.Personas))
	for i := range old.Personas {
		oldPersonas[old.Personas[i].ID] = &old.Personas[i]
	}
	newPersonas := make(map[string]*PersonaConfig, len(new.Personas))
	for i := range new.Personas {
		newPersonas[new.Personas[i].ID] = &new.Personas[i]
	}

	// Detect modified and removed personas.
	for id, oldP := range oldPersonas {
		newP, exists := newPersonas[id]
		if !exists {
			d.PersonaChanges = append(d.PersonaChanges, PersonaDiff{
				ID:      id,
				Removed: true,
			})
			d.PersonasChanged = true
			continue
		}
		pd := diffPersona(id, oldP, newP)
		if pd.IdentityChanged || pd.VoiceChanged || pd.SuggestionChanged {
			d.PersonaChanges = append(d.PersonaChanges, pd)
			d.PersonasChanged = true
		}
	}

	// Detect added personas.
	for id := range newPersonas {
		if _, exists := oldPersonas[id]; !exists {
			d.PersonaChanges = append(d.PersonaChanges, PersonaDiff{
				ID:    id,
				Added: true,
			})
			d.PersonasChanged = true
		}
	}

	return d
}

// diffPersona compares two persona configs with the same ID.
func diffPersona(id string, old, new *PersonaConfig) PersonaDiff {
	pd := PersonaDiff{ID: id}

	if old.Name != new.Name || old.Description != new.Description || old.Greeting != new.Greeting {
		pd.IdentityChanged = true
	}

	if old.Voice != new.Voice {
		pd.VoiceChanged = true
	}

	if old.Weight != new.Weight || !clustersEqual(old.Clusters, new.Clusters) {
		pd.SuggestionChanged = true
	}

	return pd
}

func clustersEqual(a, b [][]string) bool {
	return slices.EqualFunc(a, b, slices.Equal)
}

package models

import "fmt"

// Finding records one broken entity and what was done about it
type Finding struct {
	Job     string     `json:"job" yaml:"job"`
	Host    string     `json:"host" yaml:"host"`
	Kind    EntityKind `json:"kind" yaml:"kind"`
	ID      string     `json:"id" yaml:"id"`
	Name    string     `json:"name,omitempty" yaml:"name,omitempty"`
	Key     string     `json:"key,omitempty" yaml:"key,omitempty"`
	Error   string     `json:"error,omitempty" yaml:"error,omitempty"`
	Verdict Verdict    `json:"verdict" yaml:"verdict"`
}

// Identity returns a key that is stable across runs for the same entity
func (f Finding) Identity() string {
	return fmt.Sprintf("%s/%s/%s/%s", f.Job, f.Host, f.Kind, f.ID)
}

// Describe renders the one-line form used in log output
func (f Finding) Describe() string {
	switch f.Kind {
	case KindTrigger:
		return fmt.Sprintf("ID=%s Description='%s' Error='%s'", f.ID, f.Name, f.Error)
	default:
		return fmt.Sprintf("ID=%s Name='%s' Key='%s' Error='%s'", f.ID, f.Name, f.Key, f.Error)
	}
}

package domain

import "time"

// Entry is a persisted extension together with its enabled flag.
type Entry struct {
	Enabled bool
	Config  Config
}

func (e Entry) Key() string {
	return Key(e.Config)
}

// LaunchPlan is what a transport receives after activation checks passed.
type LaunchPlan struct {
	ID      string
	Key     string
	Name    string
	Kind    TransportKind
	Command string
	Args    []string
	URI     string
	Headers map[string]string
	Env     map[string]string
	Timeout time.Duration
	Summary string
}

// IndexRecord is the queryable projection of an Entry.
type IndexRecord struct {
	Key       string
	Name      string
	Kind      TransportKind
	Enabled   bool
	Summary   string
	EnvNames  []string
	EnvKeys   []string
	UpdatedAt time.Time
}

func NewIndexRecord(entry Entry, at time.Time) IndexRecord {
	envs, envKeys, _ := EnvsOf(entry.Config)
	return IndexRecord{
		Key:       entry.Key(),
		Name:      Name(entry.Config),
		Kind:      TransportOf(entry.Config),
		Enabled:   entry.Enabled,
		Summary:   Render(entry.Config),
		EnvNames:  envs.Keys(),
		EnvKeys:   append([]string{}, envKeys...),
		UpdatedAt: at,
	}
}

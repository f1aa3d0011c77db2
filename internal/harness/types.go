package harness

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	Instances []InstanceReport `json:"instances"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// InstanceReport describes one mapper instance.
type InstanceReport struct {
	Label      string `json:"label"`
	InstanceID string `json:"instance_id"`

	// SchemaHash identifies the registered schemas.
	SchemaHash string `json:"schema_hash"`

	// Fingerprint identifies the captured snapshot.
	Fingerprint string `json:"fingerprint"`

	// Entities lists the discovered classes in ascending order.
	Entities []string `json:"entities"`

	// Delta holds the drift records against the previous capture.
	Delta []string `json:"delta"`

	// FullDiff is the structural snapshot diff, when requested.
	FullDiff string `json:"full_diff,omitempty"`

	Forks []ForkReport `json:"forks,omitempty"`
}

// ForkReport records what one EntityManager did.
type ForkReport struct {
	Persisted []EntityRef   `json:"persisted,omitempty"`
	Found     []FoundRecord `json:"found,omitempty"`
}

// EntityRef names a stored entity.
type EntityRef struct {
	Class string `json:"class"`
	ID    int64  `json:"id"`
}

// FoundRecord is the outcome of one FindStep.
type FoundRecord struct {
	Query  string         `json:"query"`
	Where  map[string]any `json:"where,omitempty"`
	Entity *EntityRef     `json:"entity,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// NewResult creates a passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:  scenario,
		Pass:      true,
		Instances: []InstanceReport{},
		Errors:    []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

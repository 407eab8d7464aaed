package models

// EntityKind identifies which kind of Zabbix object a finding refers to
type EntityKind string

const (
	KindHost          EntityKind = "host"
	KindItem          EntityKind = "item"
	KindTrigger       EntityKind = "trigger"
	KindDiscoveryRule EntityKind = "discoveryrule"
)

// Verdict is the outcome of classifying a broken entity
type Verdict string

const (
	// VerdictBroken is reported and fails the run.
	VerdictBroken Verdict = "broken"
	// VerdictExcluded matched an exclusion rule and is only logged.
	VerdictExcluded Verdict = "excluded"
	// VerdictDisabled was disabled by the operator in interactive mode.
	VerdictDisabled Verdict = "disabled"
	// VerdictKept was left untouched because the operator declined.
	VerdictKept Verdict = "kept"
	// VerdictDisableFailed means the operator confirmed but the update call failed.
	VerdictDisableFailed Verdict = "disable_failed"
)

// Fails reports whether the verdict should flip the run to failure
func (v Verdict) Fails() bool {
	return v == VerdictBroken
}

// RunStatus represents the overall outcome of a run
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusOK      RunStatus = "ok"
	StatusFailed  RunStatus = "failed"
)

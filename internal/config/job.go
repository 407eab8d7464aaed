package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// Keys recognised in the default and job sections
const (
	KeyHost              = "zdx_host"
	KeyUser              = "zdx_user"
	KeyPassword          = "zdx_pass"
	KeyExcludeItemIDs    = "exclude_item_ids"
	KeyExcludeItemRE     = "exclude_item_re"
	KeyExcludeTriggerIDs = "exclude_trigger_ids"
	KeyExcludeTriggerRE  = "exclude_trigger_re"
	KeyIncludeHostGroups = "include_host_groups"
	KeyInteractive       = "interactive"
	KeyAttempts          = "attempts"
	KeyLoginField        = "login_field"
	KeyTLSInsecure       = "tls_insecure"
)

var jobKeys = []string{
	KeyHost, KeyUser, KeyPassword,
	KeyExcludeItemIDs, KeyExcludeItemRE,
	KeyExcludeTriggerIDs, KeyExcludeTriggerRE,
	KeyIncludeHostGroups, KeyInteractive,
	KeyAttempts, KeyLoginField, KeyTLSInsecure,
}

// JobConfig is the resolved configuration of one job
type JobConfig struct {
	Name     string
	Host     string
	User     string
	Password string

	ExcludeItemIDs    map[string]struct{}
	ExcludeItemRE     *regexp.Regexp
	ExcludeTriggerIDs map[string]struct{}
	ExcludeTriggerRE  *regexp.Regexp

	// IncludeHostGroups holds lower-cased group names; empty allows every group.
	IncludeHostGroups map[string]struct{}
	Interactive       bool

	Attempts    int
	LoginField  string
	TLSInsecure bool
}

// ResolveOptions carries command line overrides
type ResolveOptions struct {
	Interactive bool
}

// ValidationError is a job-scoped configuration problem; the job must be skipped
type ValidationError struct {
	Job string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("job %q: %v", e.Job, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// DefaultJobSettings returns the baseline every job starts from
func DefaultJobSettings() map[string]string {
	m := make(map[string]string, len(jobKeys))
	for _, k := range jobKeys {
		m[k] = ""
	}
	m[KeyAttempts] = "1"
	return m
}

// Settings returns the merged raw settings of a job: defaults, then the
// default section, then the job section. Empty values never override.
func (f *File) Settings(job string) (map[string]string, error) {
	section, ok := f.jobs[strings.ToLower(job)]
	if !ok {
		return nil, fmt.Errorf("unknown job %q", job)
	}

	merged := DefaultJobSettings()
	overlay(merged, f.defaults)
	overlay(merged, section)
	return merged, nil
}

func overlay(dst, src map[string]string) {
	for _, k := range jobKeys {
		if v := strings.TrimSpace(src[k]); v != "" {
			dst[k] = v
		}
	}
}

// Resolve merges the default and job sections and validates the result
func (f *File) Resolve(job string, opts ResolveOptions) (*JobConfig, error) {
	raw, err := f.Settings(job)
	if err != nil {
		return nil, &ValidationError{Job: job, Err: err}
	}
	return resolve(job, raw, opts)
}

func resolve(job string, raw map[string]string, opts ResolveOptions) (*JobConfig, error) {
	var errs []error
	for _, k := range []string{KeyHost, KeyUser, KeyPassword} {
		if raw[k] == "" {
			errs = append(errs, fmt.Errorf("parameter wrong: '%s'", k))
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Job: job, Err: errors.Join(errs...)}
	}

	var err error
	jc := &JobConfig{
		Name:              job,
		Host:              raw[KeyHost],
		User:              raw[KeyUser],
		Password:          raw[KeyPassword],
		ExcludeItemIDs:    numericSet(raw[KeyExcludeItemIDs]),
		ExcludeTriggerIDs: numericSet(raw[KeyExcludeTriggerIDs]),
		IncludeHostGroups: lowerSet(raw[KeyIncludeHostGroups]),
		Interactive:       opts.Interactive || truthy(raw[KeyInteractive]),
		LoginField:        raw[KeyLoginField],
		TLSInsecure:       truthy(raw[KeyTLSInsecure]),
	}

	if jc.ExcludeItemRE, err = compileOptional(KeyExcludeItemRE, raw[KeyExcludeItemRE]); err != nil {
		return nil, &ValidationError{Job: job, Err: err}
	}
	if jc.ExcludeTriggerRE, err = compileOptional(KeyExcludeTriggerRE, raw[KeyExcludeTriggerRE]); err != nil {
		return nil, &ValidationError{Job: job, Err: err}
	}

	attempts, err := cast.ToIntE(raw[KeyAttempts])
	if err != nil || attempts < 1 {
		return nil, &ValidationError{Job: job, Err: fmt.Errorf("parameter wrong: '%s' must be a positive integer", KeyAttempts)}
	}
	jc.Attempts = attempts

	return jc, nil
}

func compileOptional(key, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("parameter wrong: '%s': %w", key, err)
	}
	return re, nil
}

// numericSet splits on whitespace and keeps purely numeric tokens.
func numericSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		if isDigits(tok) {
			out[tok] = struct{}{}
		}
	}
	return out
}

func lowerSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[strings.ToLower(tok)] = struct{}{}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on":
		return true
	}
	return false
}

// AllowsGroups reports whether a host with the given groups passes the
// include_host_groups allowlist. An empty allowlist allows everything.
func (jc *JobConfig) AllowsGroups(groups []string) bool {
	if len(jc.IncludeHostGroups) == 0 {
		return true
	}
	for _, g := range groups {
		if _, ok := jc.IncludeHostGroups[strings.ToLower(g)]; ok {
			return true
		}
	}
	return false
}

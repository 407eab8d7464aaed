package checker

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hardened-user/zabbix-check-status/internal/config"
	"github.com/hardened-user/zabbix-check-status/internal/models"
	"github.com/hardened-user/zabbix-check-status/internal/zabbix"
)

// benignTriggerErrors are trigger error fragments (lower-case) that are
// never worth reporting.
var benignTriggerErrors = []string{
	"no status update so far",
	"processes started",
	"agent is unavailable",
	"item is disabled",
	": item is not supported.",
	": not enough data.",
	": cannot get values from value cache.",
}

// healthy reports whether an entity needs no attention: disabled, or enabled
// and in the normal state.
func healthy(status, state zabbix.Flag) bool {
	return status == zabbix.StatusDisabled || state == zabbix.StateNormal
}

func itemExcluded(cfg *config.JobConfig, it zabbix.Item) bool {
	if _, ok := cfg.ExcludeItemIDs[it.ItemID]; ok {
		return true
	}
	return cfg.ExcludeItemRE != nil && cfg.ExcludeItemRE.MatchString(it.Key)
}

func triggerExcluded(cfg *config.JobConfig, t zabbix.Trigger) bool {
	if benignTriggerError(t.Error) {
		return true
	}
	if _, ok := cfg.ExcludeTriggerIDs[t.TriggerID]; ok {
		return true
	}
	return cfg.ExcludeTriggerRE != nil && cfg.ExcludeTriggerRE.MatchString(t.Description)
}

func benignTriggerError(msg string) bool {
	msg = strings.ToLower(msg)
	for _, frag := range benignTriggerErrors {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// Discovery rules are only ever reported: they have no exclusion or
// interactive branch.
func (s *scan) checkDiscoveryRules(ctx context.Context, log zerolog.Logger, host string, ref zabbix.HostRef) {
	log.Debug().Msg("Checking LLD rules: ...")
	rules, err := s.api.DiscoveryRuleGet(ctx, ref, false, nil)
	if err != nil {
		s.queryFailed(log, "LLD rules", err)
		return
	}
	if len(rules) == 0 {
		log.Debug().Msg("No one LLD rule found")
	}
	for _, r := range rules {
		if healthy(r.Status, r.State) {
			continue
		}
		s.record(log, "LLD", models.Finding{
			Host: host, Kind: models.KindDiscoveryRule,
			ID: r.ItemID, Name: r.Name, Key: r.Key, Error: r.Error,
		}, models.VerdictBroken)
	}
}

func (s *scan) checkItems(ctx context.Context, log zerolog.Logger, host string, ref zabbix.HostRef) {
	log.Debug().Msg("Checking items: ...")
	items, err := s.api.ItemGet(ctx, ref, nil)
	if err != nil {
		s.queryFailed(log, "items", err)
		return
	}
	if len(items) == 0 {
		log.Debug().Msg("No one item found")
	}
	for _, it := range items {
		if healthy(it.Status, it.State) {
			continue
		}
		f := models.Finding{
			Host: host, Kind: models.KindItem,
			ID: it.ItemID, Name: it.Name, Key: it.Key, Error: it.Error,
		}
		switch {
		case itemExcluded(s.cfg, it):
			s.record(log, "Skipped item", f, models.VerdictExcluded)
		case s.cfg.Interactive:
			s.disable(ctx, log, "Item", f, s.api.ItemUpdate)
		default:
			s.record(log, "Item", f, models.VerdictBroken)
		}
	}
}

func (s *scan) checkTriggers(ctx context.Context, log zerolog.Logger, host string, ref zabbix.HostRef) {
	log.Debug().Msg("Checking triggers: ...")
	triggers, err := s.api.TriggerGet(ctx, ref, nil)
	if err != nil {
		s.queryFailed(log, "triggers", err)
		return
	}
	if len(triggers) == 0 {
		log.Debug().Msg("No one trigger found")
	}
	for _, t := range triggers {
		if healthy(t.Status, t.State) {
			continue
		}
		f := models.Finding{
			Host: host, Kind: models.KindTrigger,
			ID: t.TriggerID, Name: t.Description, Error: t.Error,
		}
		switch {
		case triggerExcluded(s.cfg, t):
			s.record(log, "Skipped trigger", f, models.VerdictExcluded)
		case s.cfg.Interactive:
			s.disable(ctx, log, "Trigger", f, s.api.TriggerUpdate)
		default:
			s.record(log, "Trigger", f, models.VerdictBroken)
		}
	}
}

type updateFunc func(ctx context.Context, id string, fields zabbix.Params) ([]string, error)

// disable asks the operator and, on confirmation, sets status to disabled
// with exactly one update call.
func (s *scan) disable(ctx context.Context, log zerolog.Logger, label string, f models.Finding, update updateFunc) {
	ok, err := s.deps.Prompt.Confirm("Disable " + strings.ToLower(label) + ": " + f.Describe())
	if err != nil {
		log.Warn().Err(err).Msg("confirmation failed")
	}
	if !ok {
		s.record(log, label+" kept", f, models.VerdictKept)
		return
	}

	if _, err := update(ctx, f.ID, zabbix.Params{"status": zabbix.StatusDisabled}); err != nil {
		log.Error().Err(err).Msgf("%s not disabled", label)
		s.record(log, label, f, models.VerdictDisableFailed)
		return
	}
	if s.deps.Display != nil {
		s.deps.Display.OK(label + " disabled")
	}
	s.record(log, label+" disabled", f, models.VerdictDisabled)
}

// record appends a finding and updates the job counters
func (s *scan) record(log zerolog.Logger, label string, f models.Finding, v models.Verdict) {
	f.Job = s.result.Name
	f.Verdict = v
	s.findings = append(s.findings, f)

	switch v {
	case models.VerdictBroken:
		s.result.Broken++
		s.result.Failed = true
		log.Info().Msgf("%s: %s", label, f.Describe())
	case models.VerdictExcluded:
		s.result.Excluded++
		log.Debug().Msgf("%s: %s", label, f.Describe())
	case models.VerdictDisabled:
		s.result.Disabled++
		log.Debug().Msgf("%s: %s", label, f.Describe())
	default:
		log.Debug().Msgf("%s: %s", label, f.Describe())
	}
}

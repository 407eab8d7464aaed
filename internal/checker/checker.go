// Package checker runs the status scan over every configured job.
//
// Jobs are processed one at a time. A job that fails (bad configuration,
// connection failure, panic) is recorded in the run summary and the loop
// moves on to the next one; nothing inside a job aborts the run.
package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hardened-user/zabbix-check-status/internal/config"
	"github.com/hardened-user/zabbix-check-status/internal/models"
	"github.com/hardened-user/zabbix-check-status/internal/zabbix"
)

// API is the subset of the Zabbix client the scan needs
type API interface {
	HostGet(ctx context.Context, q zabbix.HostQuery, filter zabbix.Filter) ([]zabbix.Host, error)
	DiscoveryRuleGet(ctx context.Context, host zabbix.HostRef, extendItems bool, filter zabbix.Filter) ([]zabbix.DiscoveryRule, error)
	ItemGet(ctx context.Context, host zabbix.HostRef, filter zabbix.Filter) ([]zabbix.Item, error)
	TriggerGet(ctx context.Context, host zabbix.HostRef, filter zabbix.Filter) ([]zabbix.Trigger, error)
	ItemUpdate(ctx context.Context, itemID string, fields zabbix.Params) ([]string, error)
	TriggerUpdate(ctx context.Context, triggerID string, fields zabbix.Params) ([]string, error)
	Version(ctx context.Context) (string, error)
}

// Connector opens an authenticated session for one job
type Connector func(ctx context.Context, opts zabbix.Options) (API, error)

// ZabbixConnector adapts zabbix.Connect to a Connector.
func ZabbixConnector(ctx context.Context, opts zabbix.Options) (API, error) {
	c, err := zabbix.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Prompter asks the operator to confirm disabling an entity
type Prompter interface {
	Confirm(question string) (bool, error)
}

// Display renders section banners and success lines
type Display interface {
	JobBanner(name string)
	HostBanner(name string)
	OK(msg string)
}

// Options narrows and alters a run; they come from the command line
type Options struct {
	// Server limits the run to the job with this name (case-insensitive).
	Server string
	// Host limits the scan to hosts with this visible name (case-insensitive).
	Host string
	// Interactive forces interactive mode on every job.
	Interactive bool
	// Test only checks that every job can log in.
	Test bool
}

// Deps are the collaborators of a run
type Deps struct {
	Connect Connector
	Prompt  Prompter
	Display Display
	Logger  zerolog.Logger
}

// Run scans every job of file and returns the summary. The summary is not
// finished; the caller stamps it once its own cleanup is done.
func Run(ctx context.Context, opts Options, file *config.File, deps Deps) *models.RunSummary {
	summary := models.NewRunSummary()
	log := deps.Logger.With().Str("run", summary.ID).Logger()

	matched := false
	for _, name := range file.Jobs() {
		if opts.Server != "" && !strings.EqualFold(name, opts.Server) {
			continue
		}
		matched = true

		if err := ctx.Err(); err != nil {
			summary.Jobs = append(summary.Jobs, models.JobResult{Name: name, Failed: true, Error: err.Error()})
			continue
		}

		s := &scan{
			opts: opts,
			deps: deps,
			log:  log.With().Str("job", name).Logger(),
		}
		s.result.Name = name
		s.runIsolated(ctx, file)

		if s.result.Failed {
			s.log.Debug().Msg("job finished with failures")
		}
		summary.Jobs = append(summary.Jobs, s.result)
		summary.Findings = append(summary.Findings, s.findings...)
	}

	if opts.Server != "" && !matched {
		log.Error().Str("server", opts.Server).Msg("no job matches the requested server")
		summary.MarkFailed()
	}

	return summary
}

// scan holds the state of one job
type scan struct {
	opts     Options
	deps     Deps
	log      zerolog.Logger
	cfg      *config.JobConfig
	api      API
	result   models.JobResult
	findings []models.Finding
}

// runIsolated runs the job inside a deferred recover so a panic is recorded
// as a job error instead of taking down the remaining jobs.
func (s *scan) runIsolated(ctx context.Context, file *config.File) {
	defer func() {
		if r := recover(); r != nil {
			s.fail(fmt.Errorf("job %q panicked: %v", s.result.Name, r))
		}
	}()
	s.run(ctx, file)
}

func (s *scan) run(ctx context.Context, file *config.File) {
	if s.deps.Display != nil {
		s.deps.Display.JobBanner(s.result.Name)
	}

	cfg, err := file.Resolve(s.result.Name, config.ResolveOptions{Interactive: s.opts.Interactive})
	if err != nil {
		s.fail(err)
		return
	}
	s.cfg = cfg

	api, err := s.deps.Connect(ctx, zabbix.Options{
		Host:        cfg.Host,
		User:        cfg.User,
		Password:    cfg.Password,
		Attempts:    cfg.Attempts,
		LoginField:  cfg.LoginField,
		TLSInsecure: cfg.TLSInsecure,
		Logger:      s.log,
	})
	if err != nil {
		s.fail(err)
		return
	}
	s.api = api

	if s.opts.Test {
		s.testConnection(ctx)
		return
	}

	hosts, err := api.HostGet(ctx, zabbix.HostQuery{ExtendGroups: true}, zabbix.Filter{"status": zabbix.StatusEnabled})
	if err != nil {
		s.fail(fmt.Errorf("failed to list hosts: %w", err))
		return
	}
	if len(hosts) == 0 {
		s.log.Warn().Msg("No one host found")
		return
	}

	for _, h := range hosts {
		if ctx.Err() != nil {
			s.fail(ctx.Err())
			return
		}
		s.checkHost(ctx, h)
	}
}

func (s *scan) testConnection(ctx context.Context) {
	if version, err := s.api.Version(ctx); err != nil {
		s.log.Warn().Err(err).Msg("could not read API version")
	} else {
		s.log.Info().Str("version", version).Msg("Zabbix API version")
	}
	if s.deps.Display != nil {
		s.deps.Display.OK("Zabbix API connection successfully")
	}
}

func (s *scan) checkHost(ctx context.Context, h zabbix.Host) {
	name := h.DisplayName()
	if s.opts.Host != "" && !strings.EqualFold(name, strings.TrimSpace(s.opts.Host)) {
		return
	}

	groups := make([]string, 0, len(h.Groups))
	for _, g := range h.Groups {
		groups = append(groups, g.Name)
	}
	if !s.cfg.AllowsGroups(groups) {
		s.log.Debug().Str("host", name).Strs("groups", groups).Msg("host skipped by include_host_groups")
		return
	}

	if s.deps.Display != nil {
		s.deps.Display.HostBanner(name)
	}
	ref, err := h.Ref()
	if err != nil {
		s.fail(err)
		return
	}
	s.result.HostsChecked++

	hl := s.log.With().Str("host", name).Logger()
	s.checkDiscoveryRules(ctx, hl, name, ref)
	s.checkItems(ctx, hl, name, ref)
	s.checkTriggers(ctx, hl, name, ref)
}

// fail records err as the job error and flips the job to failure
func (s *scan) fail(err error) {
	s.log.Error().Err(err).Msg("job failed")
	s.result.Failed = true
	if s.result.Error == "" {
		s.result.Error = err.Error()
	}
}

// queryFailed reports a list call that returned no data because of an error
func (s *scan) queryFailed(log zerolog.Logger, what string, err error) {
	log.Warn().Err(err).Msgf("failed to get %s", what)
	s.result.Failed = true
}

package checker

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardened-user/zabbix-check-status/internal/config"
	"github.com/hardened-user/zabbix-check-status/internal/models"
	"github.com/hardened-user/zabbix-check-status/internal/zabbix"
)

type updateCall struct {
	method string
	id     string
	fields zabbix.Params
}

type fakeAPI struct {
	hosts    []zabbix.Host
	rules    map[zabbix.HostRef][]zabbix.DiscoveryRule
	items    map[zabbix.HostRef][]zabbix.Item
	triggers map[zabbix.HostRef][]zabbix.Trigger

	hostFilter zabbix.Filter
	hostErr    error
	ruleErr    error
	itemErr    error
	triggerErr error
	updateErr  error
	calls      []string
	updates    []updateCall
}

func (f *fakeAPI) HostGet(_ context.Context, q zabbix.HostQuery, filter zabbix.Filter) ([]zabbix.Host, error) {
	f.calls = append(f.calls, "host.get")
	f.hostFilter = filter
	if f.hostErr != nil {
		return nil, f.hostErr
	}
	return f.hosts, nil
}

func (f *fakeAPI) DiscoveryRuleGet(_ context.Context, host zabbix.HostRef, _ bool, _ zabbix.Filter) ([]zabbix.DiscoveryRule, error) {
	f.calls = append(f.calls, "discoveryrule.get")
	if f.ruleErr != nil {
		return nil, f.ruleErr
	}
	return f.rules[host], nil
}

func (f *fakeAPI) ItemGet(_ context.Context, host zabbix.HostRef, _ zabbix.Filter) ([]zabbix.Item, error) {
	f.calls = append(f.calls, "item.get")
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	return f.items[host], nil
}

func (f *fakeAPI) TriggerGet(_ context.Context, host zabbix.HostRef, _ zabbix.Filter) ([]zabbix.Trigger, error) {
	f.calls = append(f.calls, "trigger.get")
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return f.triggers[host], nil
}

func (f *fakeAPI) ItemUpdate(_ context.Context, id string, fields zabbix.Params) ([]string, error) {
	f.updates = append(f.updates, updateCall{"item.update", id, fields})
	return []string{id}, f.updateErr
}

func (f *fakeAPI) TriggerUpdate(_ context.Context, id string, fields zabbix.Params) ([]string, error) {
	f.updates = append(f.updates, updateCall{"trigger.update", id, fields})
	return []string{id}, f.updateErr
}

func (f *fakeAPI) Version(context.Context) (string, error) {
	f.calls = append(f.calls, "apiinfo.version")
	return "6.0.0", nil
}

type fakePrompt struct {
	answer    bool
	questions []string
}

func (p *fakePrompt) Confirm(q string) (bool, error) {
	p.questions = append(p.questions, q)
	return p.answer, nil
}

type recordingDisplay struct {
	lines []string
}

func (d *recordingDisplay) JobBanner(name string)  { d.lines = append(d.lines, "job:"+name) }
func (d *recordingDisplay) HostBanner(name string) { d.lines = append(d.lines, "host:"+name) }
func (d *recordingDisplay) OK(msg string)          { d.lines = append(d.lines, "ok:"+msg) }

var web01 = zabbix.HostID(10)

func sampleAPI() *fakeAPI {
	return &fakeAPI{
		hosts: []zabbix.Host{
			{HostID: "10", Host: "web01", Name: " web01 ", Groups: []zabbix.HostGroup{{Name: "Linux"}}},
		},
		items: map[zabbix.HostRef][]zabbix.Item{
			web01: {
				{ItemID: "100", Name: "CPU load", Key: "system.cpu.load", State: zabbix.StateNotSupported, Error: "timeout"},
				{ItemID: "101", Name: "Disabled", Key: "x", Status: zabbix.StatusDisabled, State: zabbix.StateNotSupported},
				{ItemID: "102", Name: "Normal", Key: "y"},
			},
		},
	}
}

func loadINI(t *testing.T, ini string) *config.File {
	t.Helper()
	f, err := config.LoadReader(strings.NewReader(ini))
	require.NoError(t, err)
	return f
}

type harness struct {
	api       *fakeAPI
	prompt    *fakePrompt
	display   *recordingDisplay
	connected []zabbix.Options
	connErr   error
}

func newHarness(api *fakeAPI) *harness {
	return &harness{api: api, prompt: &fakePrompt{}, display: &recordingDisplay{}}
}

func (h *harness) deps() Deps {
	return Deps{
		Connect: func(_ context.Context, opts zabbix.Options) (API, error) {
			h.connected = append(h.connected, opts)
			if h.connErr != nil {
				return nil, h.connErr
			}
			return h.api, nil
		},
		Prompt:  h.prompt,
		Display: h.display,
		Logger:  zerolog.Nop(),
	}
}

func (h *harness) run(t *testing.T, ini string, opts Options) *models.RunSummary {
	t.Helper()
	return Run(context.Background(), opts, loadINI(t, ini), h.deps())
}

const twoJobs = `
[default]
zdx_user = reader

[b]
zdx_host = zbx-b.example.com

[a]
zdx_host = zbx-a.example.com
zdx_pass = secret
`

func brokenIDs(s *models.RunSummary) []string {
	var ids []string
	for _, f := range s.Findings {
		if f.Verdict.Fails() {
			ids = append(ids, f.Identity())
		}
	}
	return ids
}

func TestRun_ValidJobAndMissingPassword(t *testing.T) {
	h := newHarness(sampleAPI())
	s := h.run(t, twoJobs, Options{})

	require.Len(t, s.Jobs, 2)
	a, b := s.Jobs[0], s.Jobs[1]

	assert.Equal(t, "a", a.Name)
	assert.True(t, a.Failed)
	assert.Empty(t, a.Error)
	assert.Equal(t, 1, a.HostsChecked)
	assert.Equal(t, 1, a.Broken)

	assert.Equal(t, "b", b.Name)
	assert.True(t, b.Failed)
	assert.Contains(t, b.Error, "zdx_pass")

	require.Len(t, h.connected, 1, "job b must not connect")
	assert.Equal(t, "zbx-a.example.com", h.connected[0].Host)
	assert.Equal(t, "reader", h.connected[0].User)
	assert.Equal(t, 1, h.connected[0].Attempts)

	assert.Equal(t, []string{"a/web01/item/100"}, brokenIDs(s))
	assert.Equal(t, zabbix.Filter{"status": zabbix.StatusEnabled}, h.api.hostFilter)
	assert.True(t, s.Failed())
}

func TestRun_JobAfterBadJobStillRuns(t *testing.T) {
	h := newHarness(&fakeAPI{})
	s := h.run(t, `
[default]
zdx_user = u
[a]
zdx_host = zbx
[b]
zdx_host = zbx
zdx_pass = p
`, Options{})

	require.Len(t, s.Jobs, 2)
	assert.True(t, s.Jobs[0].Failed)
	assert.False(t, s.Jobs[1].Failed)
	assert.Len(t, h.connected, 1)
	assert.True(t, s.Failed())
}

func TestRun_TestModeQueriesNothing(t *testing.T) {
	h := newHarness(sampleAPI())
	s := h.run(t, twoJobs, Options{Server: "A", Test: true})

	require.Len(t, s.Jobs, 1)
	assert.False(t, s.Jobs[0].Failed)
	assert.Equal(t, []string{"apiinfo.version"}, h.api.calls)
	assert.Contains(t, h.display.lines, "ok:Zabbix API connection successfully")
	assert.False(t, s.Failed())
}

func TestRun_ConnectFailure(t *testing.T) {
	h := newHarness(sampleAPI())
	h.connErr = errors.New("connection refused")
	s := h.run(t, twoJobs, Options{Server: "a"})

	require.Len(t, s.Jobs, 1)
	assert.True(t, s.Jobs[0].Failed)
	assert.Contains(t, s.Jobs[0].Error, "connection refused")
	assert.Empty(t, h.api.calls)
}

func TestRun_UnknownServerFails(t *testing.T) {
	h := newHarness(sampleAPI())
	s := h.run(t, twoJobs, Options{Server: "nope"})
	assert.Empty(t, s.Jobs)
	assert.True(t, s.Failed())
}

func TestRun_KeylessJobWithoutCredentialsFails(t *testing.T) {
	h := newHarness(sampleAPI())
	s := h.run(t, "[default]\n\n[prod]\n", Options{Server: "prod"})

	require.Len(t, s.Jobs, 1)
	assert.Equal(t, "prod", s.Jobs[0].Name)
	assert.True(t, s.Jobs[0].Failed)
	assert.Contains(t, s.Jobs[0].Error, "zdx_host")
	assert.Empty(t, h.connected)
	assert.True(t, s.Failed())
}

func TestRun_HostListErrorFailsJob(t *testing.T) {
	api := sampleAPI()
	api.hostErr = &zabbix.APIError{Code: -32602, Message: "Invalid params."}
	h := newHarness(api)

	s := h.run(t, twoJobs, Options{Server: "a"})

	require.Len(t, s.Jobs, 1)
	assert.True(t, s.Jobs[0].Failed)
	assert.Contains(t, s.Jobs[0].Error, "failed to list hosts")
	assert.Equal(t, []string{"host.get"}, api.calls)
	assert.Empty(t, s.Findings)
}

func entityQueryAPI() *fakeAPI {
	return &fakeAPI{
		hosts: []zabbix.Host{{HostID: "10", Host: "web01"}},
		rules: map[zabbix.HostRef][]zabbix.DiscoveryRule{
			web01: {{ItemID: "50", State: zabbix.StateNotSupported}},
		},
		items: map[zabbix.HostRef][]zabbix.Item{
			web01: {{ItemID: "100", State: zabbix.StateNotSupported}},
		},
		triggers: map[zabbix.HostRef][]zabbix.Trigger{
			web01: {{TriggerID: "300", State: zabbix.StateNotSupported, Error: "boom"}},
		},
	}
}

func TestRun_EntityQueryErrorIsNoDataAndFailsJob(t *testing.T) {
	apiErr := &zabbix.APIError{Code: -32500, Message: "Application error."}
	tests := []struct {
		name   string
		inject func(*fakeAPI)
		failed models.EntityKind
	}{
		{"discovery rules", func(f *fakeAPI) { f.ruleErr = apiErr }, models.KindDiscoveryRule},
		{"items", func(f *fakeAPI) { f.itemErr = apiErr }, models.KindItem},
		{"triggers", func(f *fakeAPI) { f.triggerErr = apiErr }, models.KindTrigger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := entityQueryAPI()
			tt.inject(api)
			h := newHarness(api)

			s := h.run(t, twoJobs, Options{Server: "a"})

			require.Len(t, s.Jobs, 1)
			assert.True(t, s.Jobs[0].Failed)
			assert.Empty(t, s.Jobs[0].Error)
			assert.Equal(t, []string{"host.get", "discoveryrule.get", "item.get", "trigger.get"}, api.calls)

			kinds := map[models.EntityKind]bool{}
			for _, f := range s.Findings {
				kinds[f.Kind] = true
			}
			assert.Len(t, s.Findings, 2)
			assert.False(t, kinds[tt.failed])
			assert.Equal(t, 2, s.Jobs[0].Broken)
		})
	}
}

func TestRun_NoHostsIsNotAFailure(t *testing.T) {
	h := newHarness(&fakeAPI{})
	s := h.run(t, twoJobs, Options{Server: "a"})
	require.Len(t, s.Jobs, 1)
	assert.False(t, s.Jobs[0].Failed)
	assert.Equal(t, []string{"host.get"}, h.api.calls)
}

func TestRun_HostFilter(t *testing.T) {
	api := sampleAPI()
	api.hosts = append(api.hosts, zabbix.Host{HostID: "11", Host: "db01", Name: "db01"})

	h := newHarness(api)
	s := h.run(t, twoJobs, Options{Server: "a", Host: "WEB01"})

	assert.Equal(t, 1, s.Jobs[0].HostsChecked)
	assert.Contains(t, h.display.lines, "host:web01")
	assert.NotContains(t, h.display.lines, "host:db01")
}

func TestRun_HostGroupAllowlist(t *testing.T) {
	api := sampleAPI()
	api.hosts = append(api.hosts, zabbix.Host{HostID: "11", Host: "db01", Groups: []zabbix.HostGroup{{Name: "Databases"}}})

	h := newHarness(api)
	s := h.run(t, twoJobs+"include_host_groups = linux\n", Options{Server: "a"})

	assert.Equal(t, 1, s.Jobs[0].HostsChecked)
	assert.NotContains(t, h.display.lines, "host:db01")
}

func TestRun_HealthyEntitiesNeverReported(t *testing.T) {
	api := &fakeAPI{
		hosts: []zabbix.Host{{HostID: "10", Host: "web01"}},
		rules: map[zabbix.HostRef][]zabbix.DiscoveryRule{
			web01: {{ItemID: "1", Status: zabbix.StatusDisabled, State: zabbix.StateNotSupported}, {ItemID: "2"}},
		},
		items: map[zabbix.HostRef][]zabbix.Item{
			web01: {{ItemID: "3", Status: zabbix.StatusDisabled, State: zabbix.StateNotSupported}, {ItemID: "4"}},
		},
		triggers: map[zabbix.HostRef][]zabbix.Trigger{
			web01: {{TriggerID: "5", Status: zabbix.StatusDisabled, State: zabbix.StateNotSupported}, {TriggerID: "6"}},
		},
	}
	h := newHarness(api)
	s := h.run(t, twoJobs+"interactive = yes\n", Options{Server: "a"})

	assert.Empty(t, s.Findings)
	assert.False(t, s.Failed())
	assert.Empty(t, h.prompt.questions)
}

func TestRun_ItemExclusions(t *testing.T) {
	api := &fakeAPI{
		hosts: []zabbix.Host{{HostID: "10", Host: "web01"}},
		items: map[zabbix.HostRef][]zabbix.Item{
			web01: {
				{ItemID: "100", Key: "system.cpu", State: zabbix.StateNotSupported},
				{ItemID: "200", Key: "vfs.fs.size[/]", State: zabbix.StateNotSupported},
			},
		},
	}
	h := newHarness(api)
	s := h.run(t, twoJobs+"exclude_item_ids = 100\nexclude_item_re = ^vfs\\.fs\\.\n", Options{Server: "a"})

	require.Len(t, s.Findings, 2)
	for _, f := range s.Findings {
		assert.Equal(t, models.VerdictExcluded, f.Verdict)
	}
	assert.Equal(t, 2, s.Jobs[0].Excluded)
	assert.False(t, s.Failed())
}

func TestRun_TriggerExclusions(t *testing.T) {
	var triggers []zabbix.Trigger
	for i, frag := range benignTriggerErrors {
		triggers = append(triggers, zabbix.Trigger{
			TriggerID: string(rune('a' + i)),
			State:     zabbix.StateNotSupported,
			Error:     "Cannot evaluate: " + strings.ToUpper(frag),
		})
	}
	triggers = append(triggers,
		zabbix.Trigger{TriggerID: "300", Description: "x", State: zabbix.StateNotSupported, Error: "boom"},
		zabbix.Trigger{TriggerID: "301", Description: "Disk space low", State: zabbix.StateNotSupported, Error: "boom"},
		zabbix.Trigger{TriggerID: "302", Description: "Real problem", State: zabbix.StateNotSupported, Error: "boom"},
	)
	api := &fakeAPI{
		hosts:    []zabbix.Host{{HostID: "10", Host: "web01"}},
		triggers: map[zabbix.HostRef][]zabbix.Trigger{web01: triggers},
	}

	h := newHarness(api)
	s := h.run(t, twoJobs+"exclude_trigger_ids = 300\nexclude_trigger_re = ^Disk\n", Options{Server: "a"})

	assert.Equal(t, []string{"a/web01/trigger/302"}, brokenIDs(s))
	assert.Equal(t, len(benignTriggerErrors)+2, s.Jobs[0].Excluded)
}

func TestRun_DiscoveryRulesAlwaysReported(t *testing.T) {
	api := &fakeAPI{
		hosts: []zabbix.Host{{HostID: "10", Host: "web01"}},
		rules: map[zabbix.HostRef][]zabbix.DiscoveryRule{
			web01: {{ItemID: "100", Key: "vfs.fs.discovery", State: zabbix.StateNotSupported, Error: "agent is unavailable"}},
		},
	}
	h := newHarness(api)
	s := h.run(t, twoJobs+"exclude_item_ids = 100\nexclude_item_re = .*\ninteractive = on\n", Options{Server: "a"})

	assert.Equal(t, []string{"a/web01/discoveryrule/100"}, brokenIDs(s))
	assert.Empty(t, h.prompt.questions)
	assert.Empty(t, api.updates)
}

func interactiveAPI() *fakeAPI {
	return &fakeAPI{
		hosts: []zabbix.Host{{HostID: "10", Host: "web01"}},
		items: map[zabbix.HostRef][]zabbix.Item{
			web01: {{ItemID: "100", Name: "CPU", Key: "system.cpu", State: zabbix.StateNotSupported, Error: "timeout"}},
		},
		triggers: map[zabbix.HostRef][]zabbix.Trigger{
			web01: {{TriggerID: "300", Description: "High CPU", State: zabbix.StateNotSupported, Error: "boom"}},
		},
	}
}

func TestRun_InteractiveConfirm(t *testing.T) {
	api := interactiveAPI()
	h := newHarness(api)
	h.prompt.answer = true

	s := h.run(t, twoJobs, Options{Server: "a", Interactive: true})

	assert.Equal(t, []updateCall{
		{"item.update", "100", zabbix.Params{"status": zabbix.StatusDisabled}},
		{"trigger.update", "300", zabbix.Params{"status": zabbix.StatusDisabled}},
	}, api.updates)
	require.Len(t, h.prompt.questions, 2)
	assert.Equal(t, "Disable item: ID=100 Name='CPU' Key='system.cpu' Error='timeout'", h.prompt.questions[0])
	assert.Equal(t, "Disable trigger: ID=300 Description='High CPU' Error='boom'", h.prompt.questions[1])
	assert.Equal(t, 2, s.Jobs[0].Disabled)
	assert.Contains(t, h.display.lines, "ok:Item disabled")
	assert.False(t, s.Failed())
}

func TestRun_InteractiveDecline(t *testing.T) {
	api := interactiveAPI()
	h := newHarness(api)

	s := h.run(t, twoJobs+"interactive = true\n", Options{Server: "a"})

	assert.Empty(t, api.updates)
	assert.Len(t, h.prompt.questions, 2)
	for _, f := range s.Findings {
		assert.Equal(t, models.VerdictKept, f.Verdict)
	}
	assert.False(t, s.Failed())
}

func TestRun_InteractiveUpdateFailure(t *testing.T) {
	api := interactiveAPI()
	api.updateErr = errors.New("no permissions")
	h := newHarness(api)
	h.prompt.answer = true

	s := h.run(t, twoJobs, Options{Server: "a", Interactive: true})

	require.Len(t, s.Findings, 2)
	assert.Equal(t, models.VerdictDisableFailed, s.Findings[0].Verdict)
	assert.Len(t, api.updates, 2)
}

func TestRun_Idempotent(t *testing.T) {
	api := interactiveAPI()
	first := newHarness(api).run(t, twoJobs, Options{})
	second := newHarness(api).run(t, twoJobs, Options{})

	assert.Equal(t, brokenIDs(first), brokenIDs(second))
	assert.Equal(t, first.Failed(), second.Failed())
	assert.Empty(t, api.updates)
}

type panickingAPI struct{ *fakeAPI }

func (panickingAPI) HostGet(context.Context, zabbix.HostQuery, zabbix.Filter) ([]zabbix.Host, error) {
	panic("unexpected payload")
}

func TestRun_PanicIsolated(t *testing.T) {
	h := newHarness(nil)
	calls := 0
	deps := h.deps()
	deps.Connect = func(context.Context, zabbix.Options) (API, error) {
		calls++
		if calls == 1 {
			return panickingAPI{&fakeAPI{}}, nil
		}
		return sampleAPI(), nil
	}

	ini := `
[default]
zdx_user = u
zdx_pass = p
[a]
zdx_host = zbx-a
[c]
zdx_host = zbx-c
`
	s := Run(context.Background(), Options{}, loadINI(t, ini), deps)

	require.Len(t, s.Jobs, 2)
	assert.Contains(t, s.Jobs[0].Error, "panicked")
	assert.Equal(t, 1, s.Jobs[1].Broken)
}

func TestClassifyHelpers(t *testing.T) {
	assert.True(t, healthy(zabbix.StatusDisabled, zabbix.StateNotSupported))
	assert.True(t, healthy(zabbix.StatusEnabled, zabbix.StateNormal))
	assert.False(t, healthy(zabbix.StatusEnabled, zabbix.StateNotSupported))

	assert.True(t, benignTriggerError("Cannot evaluate function last(/web01/x): Not enough data."))
	assert.False(t, benignTriggerError("division by zero"))

	cfg := &config.JobConfig{
		ExcludeItemIDs: map[string]struct{}{"5": {}},
		ExcludeItemRE:  regexp.MustCompile(`^net\.`),
	}
	assert.True(t, itemExcluded(cfg, zabbix.Item{ItemID: "5"}))
	assert.True(t, itemExcluded(cfg, zabbix.Item{ItemID: "6", Key: "net.if.in"}))
	assert.False(t, itemExcluded(cfg, zabbix.Item{ItemID: "6", Name: "net.if.in", Key: "system"}))
	assert.False(t, triggerExcluded(&config.JobConfig{}, zabbix.Trigger{TriggerID: "1", Error: "oops"}))
}

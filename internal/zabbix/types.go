package zabbix

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Flag is an integer field the API encodes as a JSON string ("0", "1")
type Flag int

const (
	// StatusEnabled is the status of an enabled (or monitored) object.
	StatusEnabled Flag = 0
	// StatusDisabled is the status of a disabled (or unmonitored) object.
	StatusDisabled Flag = 1

	// StateNormal means the item is supported or the trigger state is up to date.
	StateNormal Flag = 0
	// StateNotSupported means the item is unsupported or the trigger state is unknown.
	StateNotSupported Flag = 1
)

// UnmarshalJSON accepts both quoted and bare integers.
func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return errors.Wrapf(err, "zabbix api: flag %s", string(b))
	}
	*f = Flag(n)
	return nil
}

// HostGroup is a host group as returned by selectGroups
type HostGroup struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name"`
}

// Host is a host object from host.get
type Host struct {
	HostID string      `json:"hostid"`
	Host   string      `json:"host"`
	Name   string      `json:"name"`
	Status Flag        `json:"status"`
	Groups []HostGroup `json:"groups,omitempty"`
}

// DisplayName is the visible name, falling back to the technical name
func (h Host) DisplayName() string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return strings.TrimSpace(h.Host)
}

// Ref returns the reference used to query objects that belong to the host
func (h Host) Ref() (HostRef, error) {
	id, err := strconv.Atoi(h.HostID)
	if err != nil {
		return HostRef{}, errors.Wrapf(err, "zabbix api: host %q has invalid hostid %q", h.DisplayName(), h.HostID)
	}
	return HostID(id), nil
}

// Item is an item object from item.get
type Item struct {
	ItemID string `json:"itemid"`
	HostID string `json:"hostid"`
	Name   string `json:"name"`
	Key    string `json:"key_"`
	Status Flag   `json:"status"`
	State  Flag   `json:"state"`
	Error  string `json:"error"`
}

// TriggerFunction is one entry of selectFunctions
type TriggerFunction struct {
	FunctionID string `json:"functionid"`
	ItemID     string `json:"itemid"`
	Function   string `json:"function"`
	Parameter  string `json:"parameter"`
}

// Trigger is a trigger object from trigger.get
type Trigger struct {
	TriggerID   string            `json:"triggerid"`
	Description string            `json:"description"`
	Expression  string            `json:"expression"`
	Status      Flag              `json:"status"`
	State       Flag              `json:"state"`
	Error       string            `json:"error"`
	Functions   []TriggerFunction `json:"functions,omitempty"`
}

// DiscoveryRule is an LLD rule object from discoveryrule.get
type DiscoveryRule struct {
	ItemID string `json:"itemid"`
	HostID string `json:"hostid"`
	Name   string `json:"name"`
	Key    string `json:"key_"`
	Status Flag   `json:"status"`
	State  Flag   `json:"state"`
	Error  string `json:"error"`
	Items  []Item `json:"items,omitempty"`
}

// Template is a template object from template.get
type Template struct {
	TemplateID string `json:"templateid"`
	Host       string `json:"host"`
	Name       string `json:"name"`
}

// Object is a loosely typed API object for the methods the scan never inspects
type Object map[string]any

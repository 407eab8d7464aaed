package zabbix

import (
	"context"

	"github.com/spf13/cast"
)

// HostGet returns the hosts matching q and filter
func (c *Client) HostGet(ctx context.Context, q HostQuery, filter Filter) ([]Host, error) {
	var hosts []Host
	err := c.Call(ctx, "host.get", HostGetParams(q, filter), &hosts)
	return hosts, err
}

// ItemGet returns the items of a host
func (c *Client) ItemGet(ctx context.Context, host HostRef, filter Filter) ([]Item, error) {
	var items []Item
	err := c.Call(ctx, "item.get", ItemGetParams(host, filter), &items)
	return items, err
}

// TriggerGet returns the triggers of a host
func (c *Client) TriggerGet(ctx context.Context, host HostRef, filter Filter) ([]Trigger, error) {
	var triggers []Trigger
	err := c.Call(ctx, "trigger.get", TriggerGetParams(host, filter), &triggers)
	return triggers, err
}

// DiscoveryRuleGet returns the LLD rules of a host
func (c *Client) DiscoveryRuleGet(ctx context.Context, host HostRef, extendItems bool, filter Filter) ([]DiscoveryRule, error) {
	var rules []DiscoveryRule
	err := c.Call(ctx, "discoveryrule.get", DiscoveryRuleGetParams(host, extendItems, filter), &rules)
	return rules, err
}

// TemplateGet returns the templates matching q and filter
func (c *Client) TemplateGet(ctx context.Context, q TemplateQuery, filter Filter) ([]Template, error) {
	var templates []Template
	err := c.Call(ctx, "template.get", TemplateGetParams(q, filter), &templates)
	return templates, err
}

// GraphGet returns graphs matching filter
func (c *Client) GraphGet(ctx context.Context, filter Filter) ([]Object, error) {
	return c.list(ctx, "graph.get", filter)
}

// ScreenGet returns screens matching filter
func (c *Client) ScreenGet(ctx context.Context, filter Filter) ([]Object, error) {
	return c.list(ctx, "screen.get", filter)
}

// ApplicationGet returns applications matching filter
func (c *Client) ApplicationGet(ctx context.Context, filter Filter) ([]Object, error) {
	return c.list(ctx, "application.get", filter)
}

func (c *Client) list(ctx context.Context, method string, filter Filter) ([]Object, error) {
	var objects []Object
	err := c.Call(ctx, method, ListParams(filter), &objects)
	return objects, err
}

// ItemUpdate changes fields of one item and returns the affected ids
func (c *Client) ItemUpdate(ctx context.Context, itemID string, fields Params) ([]string, error) {
	return c.mutate(ctx, "item.update", withID("itemid", itemID, fields))
}

// ItemCreate creates an item from data
func (c *Client) ItemCreate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "item.create", data)
}

// TriggerUpdate changes fields of one trigger and returns the affected ids
func (c *Client) TriggerUpdate(ctx context.Context, triggerID string, fields Params) ([]string, error) {
	return c.mutate(ctx, "trigger.update", withID("triggerid", triggerID, fields))
}

// TriggerCreate creates a trigger from data
func (c *Client) TriggerCreate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "trigger.create", data)
}

// TriggerAddDependencies makes triggerID depend on dependsOnID
func (c *Client) TriggerAddDependencies(ctx context.Context, triggerID, dependsOnID string) ([]string, error) {
	return c.mutate(ctx, "trigger.adddependencies", Params{
		"triggerid":          triggerID,
		"dependsOnTriggerid": dependsOnID,
	})
}

// GraphCreate creates a graph from data
func (c *Client) GraphCreate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "graph.create", data)
}

// GraphUpdate updates a graph; data must carry graphid
func (c *Client) GraphUpdate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "graph.update", data)
}

// ScreenCreate creates a screen from data
func (c *Client) ScreenCreate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "screen.create", data)
}

// ScreenUpdate updates a screen; data must carry screenid
func (c *Client) ScreenUpdate(ctx context.Context, data Params) ([]string, error) {
	return c.mutate(ctx, "screen.update", data)
}

// ApplicationCreate creates an application on a host
func (c *Client) ApplicationCreate(ctx context.Context, hostID, name string) ([]string, error) {
	return c.mutate(ctx, "application.create", Params{"hostid": hostID, "name": name})
}

// mutate calls a create/update method and flattens the returned id lists,
// e.g. {"itemids": ["23"]} becomes ["23"].
func (c *Client) mutate(ctx context.Context, method string, params Params) ([]string, error) {
	var res map[string][]any
	if err := c.Call(ctx, method, params, &res); err != nil {
		return nil, err
	}

	var ids []string
	for _, list := range res {
		for _, id := range list {
			ids = append(ids, cast.ToString(id))
		}
	}
	return ids, nil
}

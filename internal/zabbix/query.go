package zabbix

// Params is the params object of a JSON-RPC request
type Params map[string]any

// Filter holds exact-match conditions merged into a query's "filter" object
type Filter map[string]any

const outputExtend = "extend"

// HostRef selects the objects of one host, either by id or by technical name
type HostRef struct {
	id     int
	name   string
	byName bool
}

// HostID refers to a host by its numeric id (mapped to "hostids")
func HostID(id int) HostRef {
	return HostRef{id: id}
}

// HostName refers to a host by its technical name (mapped to "host")
func HostName(name string) HostRef {
	return HostRef{name: name, byName: true}
}

func (r HostRef) apply(p Params) {
	if r.byName {
		p["host"] = r.name
	} else {
		p["hostids"] = r.id
	}
}

// HostQuery narrows host.get
type HostQuery struct {
	Name         string // exact technical name, empty means all hosts
	ExtendGroups bool   // include the host groups
}

// TemplateQuery narrows template.get; ID wins over Name when set
type TemplateQuery struct {
	ID                int
	Name              string
	ExtendDiscoveries bool
}

// mergeFilter returns a new map holding base overlaid with extra.
// Neither argument is modified.
func mergeFilter(base map[string]any, extra Filter) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func newParams(sorted bool) Params {
	p := Params{"output": outputExtend}
	if sorted {
		p["sortfield"] = "name"
	}
	return p
}

// HostGetParams builds host.get params. Without a name every host is searched.
func HostGetParams(q HostQuery, filter Filter) Params {
	p := newParams(true)
	base := map[string]any{}
	if q.Name != "" {
		base["host"] = q.Name
	} else {
		p["search"] = map[string]any{"host": ""}
	}
	if q.ExtendGroups {
		p["selectGroups"] = outputExtend
	}
	p["filter"] = mergeFilter(base, filter)
	return p
}

// ItemGetParams builds item.get params for one host
func ItemGetParams(host HostRef, filter Filter) Params {
	p := newParams(false)
	host.apply(p)
	p["filter"] = mergeFilter(nil, filter)
	return p
}

// TriggerGetParams builds trigger.get params for one host, always with functions
func TriggerGetParams(host HostRef, filter Filter) Params {
	p := newParams(false)
	p["selectFunctions"] = outputExtend
	host.apply(p)
	p["filter"] = mergeFilter(nil, filter)
	return p
}

// DiscoveryRuleGetParams builds discoveryrule.get params for one host
func DiscoveryRuleGetParams(host HostRef, extendItems bool, filter Filter) Params {
	p := newParams(false)
	host.apply(p)
	if extendItems {
		p["selectItems"] = outputExtend
	}
	p["filter"] = mergeFilter(nil, filter)
	return p
}

// TemplateGetParams builds template.get params
func TemplateGetParams(q TemplateQuery, filter Filter) Params {
	p := newParams(true)
	p["with_items"] = true
	base := map[string]any{}
	if q.ID != 0 {
		p["templateids"] = q.ID
	} else if q.Name != "" {
		base["host"] = q.Name
	}
	if q.ExtendDiscoveries {
		p["selectDiscoveries"] = outputExtend
	}
	p["filter"] = mergeFilter(base, filter)
	return p
}

// ListParams builds the params shared by graph.get, screen.get and application.get
func ListParams(filter Filter) Params {
	p := newParams(true)
	p["filter"] = mergeFilter(nil, filter)
	return p
}

// withID copies fields and sets the id key the update methods require.
func withID(idKey, id string, fields Params) Params {
	p := make(Params, len(fields)+1)
	for k, v := range fields {
		p[k] = v
	}
	p[idKey] = id
	return p
}

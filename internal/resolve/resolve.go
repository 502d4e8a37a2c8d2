// Package resolve maps requested target and task names onto concrete hosts
// and commands, applying the authentication precedence rules.
package resolve

import (
	"strings"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/hostspec"
	"github.com/HarrisonTotty/remote-framework/internal/inventory"
)

// AdHoc is the synthetic bucket name for requested names that do not match
// any inventory target and are expanded as literal host patterns.
const AdHoc = "adhoc"

// DefaultPort is used when neither the target nor the invocation sets one.
const DefaultPort = 22

// Host is one concrete hostname with its effective connection parameters,
// computed once per run and immutable thereafter.
type Host struct {
	Name     string
	User     string
	Password string
	Cert     string
	Port     int
}

// Defaults carries the invocation-level authentication parameters. HasAgent
// reports whether a session default (an SSH agent) can stand in when no
// password or certificate is configured anywhere.
type Defaults struct {
	User     string
	Password string
	Cert     string
	Port     int
	HasAgent bool
}

// Plan is the resolved mapping from bucket (target name or AdHoc) to hosts,
// preserving both the requested bucket order and each bucket's pattern
// expansion order. Duplicate hostnames are preserved.
type Plan struct {
	Order   []string
	Buckets map[string][]Host
}

// Hosts flattens the plan into a single ordered host list.
func (p *Plan) Hosts() []Host {
	var hosts []Host
	for _, name := range p.Order {
		hosts = append(hosts, p.Buckets[name]...)
	}
	return hosts
}

// Targets resolves the requested names against the inventory. Names that
// match an inventory target expand all of that target's host patterns in
// order; anything else is expanded as an ad hoc pattern. Authentication is
// resolved per host: target-level overrides, then invocation defaults, then
// failure unless an agent is available.
func Targets(names []string, inv *inventory.Inventory, def Defaults) (*Plan, error) {
	plan := &Plan{Buckets: make(map[string][]Host)}
	for _, name := range names {
		t, ok := inv.Targets[name]
		if !ok {
			hosts, err := expandAdHoc(name, def)
			if err != nil {
				return nil, err
			}
			if _, seen := plan.Buckets[AdHoc]; !seen {
				plan.Order = append(plan.Order, AdHoc)
			}
			plan.Buckets[AdHoc] = append(plan.Buckets[AdHoc], hosts...)
			continue
		}
		if !hasAuth(t, def) {
			return nil, &errors.Error{
				Category: errors.Target,
				Target:   name,
				Message:  "some form of authentication must be specified in the target specification or via invocation defaults",
			}
		}
		var hosts []Host
		for _, pattern := range t.Hosts {
			expanded, err := hostspec.Expand(pattern)
			if err != nil {
				return nil, &errors.Error{
					Category: errors.HostSpec,
					Target:   name,
					Message:  "unable to expand host pattern",
					Err:      err,
				}
			}
			for _, h := range expanded {
				hosts = append(hosts, materialize(h, t, def))
			}
		}
		if _, seen := plan.Buckets[name]; !seen {
			plan.Order = append(plan.Order, name)
		}
		plan.Buckets[name] = append(plan.Buckets[name], hosts...)
	}
	return plan, nil
}

// Task looks up a named task. Literal commands supplied by the invocation
// bypass this lookup entirely.
func Task(name string, inv *inventory.Inventory) (inventory.Task, error) {
	t, ok := inv.Tasks[name]
	if !ok {
		return inventory.Task{}, &errors.Error{
			Category: errors.Task,
			Task:     name,
			Message:  "specified task does not exist",
		}
	}
	return t, nil
}

// SplitTaskArgs separates a "task arg1 arg2" invocation string into the
// task name and its positional arguments.
func SplitTaskArgs(spec string) (string, []string) {
	fields := strings.Fields(spec)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func expandAdHoc(pattern string, def Defaults) ([]Host, error) {
	if !def.HasAgent && def.Password == "" && def.Cert == "" {
		return nil, &errors.Error{
			Category: errors.Target,
			Target:   pattern,
			Message:  "some form of authentication must be specified via invocation defaults for ad hoc hosts",
		}
	}
	expanded, err := hostspec.Expand(pattern)
	if err != nil {
		return nil, err
	}
	hosts := make([]Host, 0, len(expanded))
	for _, h := range expanded {
		hosts = append(hosts, materialize(h, inventory.Target{}, def))
	}
	return hosts, nil
}

// materialize computes a host's effective connection parameters, field by
// field: target override first, invocation default second.
func materialize(name string, t inventory.Target, def Defaults) Host {
	h := Host{
		Name:     name,
		User:     t.User,
		Password: t.Password,
		Cert:     t.Cert,
		Port:     t.Port,
	}
	if h.User == "" {
		h.User = def.User
	}
	if h.Password == "" {
		h.Password = def.Password
	}
	if h.Cert == "" {
		h.Cert = def.Cert
	}
	if h.Port == 0 {
		h.Port = def.Port
	}
	if h.Port == 0 {
		h.Port = DefaultPort
	}
	return h
}

func hasAuth(t inventory.Target, def Defaults) bool {
	return t.Password != "" || t.Cert != "" || def.Password != "" || def.Cert != "" || def.HasAgent
}

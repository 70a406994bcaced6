package daemon

import (
	"github.com/marmos91/busybus/internal/object"
	"github.com/marmos91/busybus/internal/servicetree"
)

// installBuiltins registers the daemon's in-process methods using the same
// tree.Insert path used for remote providers, as a Local record invoked
// directly by the multiplexer (spec §4.8).
func (d *Daemon) installBuiltins() error {
	return d.tree.Insert("bbus.bbusd.echo", &servicetree.Record{
		Kind:  servicetree.Local,
		Local: echo,
	})
}

// echo implements bbus.bbusd.echo: description s -> s, returns its
// argument unchanged.
func echo(arg *object.Object) (*object.Object, error) {
	var s string
	if err := object.Parse(arg, "s", &s); err != nil {
		return nil, err
	}
	return object.Build("s", s)
}

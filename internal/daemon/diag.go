package daemon

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Dump writes a diagnostic snapshot of every connection to w: id, role,
// name, peer credentials, and (for callers) the allocated token. Intended
// to be wired to SIGHUP by cmd/bbusd.
func (d *Daemon) Dump(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "ROLE", "NAME", "TOKEN", "PID", "UID", "GID"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for e := d.conns.Front(); e != nil; e = e.Next() {
		c := e.Value.(*Connection)
		token := ""
		if c.role == RoleCaller {
			token = fmt.Sprintf("%d", c.token)
		}
		table.Append([]string{
			fmt.Sprintf("%d", c.id),
			c.role.String(),
			c.name,
			token,
			fmt.Sprintf("%d", c.creds.PID),
			fmt.Sprintf("%d", c.creds.UID),
			fmt.Sprintf("%d", c.creds.GID),
		})
	}
	table.Render()
}

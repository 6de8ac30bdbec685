// Package show renders a Topology as text tables or as a Graphviz graph.
package show

import (
	"fmt"
	"io"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"micronet/pkg/topology"
)

const (
	ClassNodes     = "nodes"
	ClassLinks     = "links"
	ClassRoutes    = "routes"
	ClassMulticast = "multicast"

	FormatTable = "table"
	FormatDot   = "dot"
)

// Render writes the class view of topo to w in the given format. The dot
// format always renders the whole graph.
func Render(w io.Writer, topo *topology.Topology, class, format string) error {
	switch format {
	case FormatDot:
		out, err := Dot(topo)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatTable, "":
		return Table(w, topo, class)
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

// Table writes one table describing class.
func Table(w io.Writer, topo *topology.Topology, class string) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	switch class {
	case ClassNodes, "":
		t.AppendHeader(table.Row{"Node", "Loopback", "Namespace", "Interfaces"})
		for _, n := range topo.Nodes() {
			lo := "-"
			if n.Loopback != nil {
				lo = n.Loopback.String()
			}
			t.AppendRow(table.Row{n.ID, lo, n.NetNs, strings.Join(topo.Interfaces(n.ID), " ")})
		}
	case ClassLinks:
		t.AppendHeader(table.Row{"Link", "Node", "Interface", "Node", "Interface"})
		for _, l := range topo.Links() {
			lo, hi := topology.Endpoints(l)
			t.AppendRow(table.Row{l.String(), lo.Node, lo.Name, hi.Node, hi.Name})
		}
	case ClassRoutes:
		t.AppendHeader(table.Row{"Node", "Destination", "Next hop", "Device"})
		for _, r := range topo.Routes() {
			t.AppendRow(table.Row{r.Node, r.Dst.String(), r.Gw.String(), r.Dev})
		}
	case ClassMulticast:
		t.AppendHeader(table.Row{"Node", "Daemon", "In", "Group", "Out"})
		for _, r := range topo.MulticastRules() {
			daemon, _ := topo.Daemon(r.Node)
			t.AppendRow(table.Row{r.Node, daemon, r.In, r.Group.String(), strings.Join(r.Out, " ")})
		}
	default:
		return errors.Errorf("invalid class %q, expected one of %s", class,
			strings.Join([]string{ClassNodes, ClassLinks, ClassRoutes, ClassMulticast}, ", "))
	}
	t.Render()
	return nil
}

// Dot returns topo as an undirected Graphviz graph. Nodes are labeled with
// their loopback and edge ends with the interface names.
func Dot(topo *topology.Topology) (string, error) {
	g := gographviz.NewEscape()
	if err := g.SetName("micronet"); err != nil {
		return "", err
	}
	if err := g.SetDir(false); err != nil {
		return "", err
	}

	for _, n := range topo.Nodes() {
		label := n.ID
		if n.Loopback != nil {
			label = fmt.Sprintf(`%s\n%s`, n.ID, n.Loopback.IP)
		}
		attrs := map[string]string{"label": label, "shape": "box"}
		if _, ok := topo.Daemon(n.ID); ok {
			attrs["style"] = "bold"
		}
		if err := g.AddNode("micronet", n.ID, attrs); err != nil {
			return "", errors.Wrapf(err, "node %s", n.ID)
		}
	}
	for _, l := range topo.Links() {
		lo, hi := topology.Endpoints(l)
		attrs := map[string]string{"taillabel": lo.Name, "headlabel": hi.Name}
		if err := g.AddEdge(lo.Node, hi.Node, false, attrs); err != nil {
			return "", errors.Wrapf(err, "link %s", l)
		}
	}
	return g.String(), nil
}

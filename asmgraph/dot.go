package asmgraph

import (
	"io"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

func sign(id int) string {
	if id < 0 {
		return "-"
	}
	return "+"
}

// WriteDot writes the live contigs as nodes and every two-contig path as an
// edge labelled with the strands it joins.
func (g *Graph) WriteDot(w io.Writer) error {
	dg := gographviz.NewGraph()
	dg.SetName("G")
	dg.SetDir(true)
	dg.SetStrict(false)
	for _, id := range g.ContigIDs() {
		attr := make(map[string]string)
		attr["color"] = "Green"
		attr["shape"] = "record"
		attr["label"] = "\"ID:" + strconv.Itoa(id) + " len:" + strconv.Itoa(g.Len(id)) +
			" w:" + strconv.FormatInt(g.ContigAttr(id, AttrWeight), 10) + "\""
		if err := dg.AddNode("G", strconv.Itoa(id), attr); err != nil {
			return errors.Wrapf(err, "[WriteDot] add node %d", id)
		}
	}
	for p := 1; p < len(g.paths); p++ {
		if g.PathDeleted(p) || len(g.paths[p].IDs) != 2 {
			continue
		}
		ids := g.paths[p].IDs
		attr := make(map[string]string)
		attr["color"] = "Blue"
		attr["label"] = "\"" + sign(ids[0]) + sign(ids[1]) + "\""
		if err := dg.AddEdge(strconv.Itoa(abs(ids[0])), strconv.Itoa(abs(ids[1])), true, attr); err != nil {
			return errors.Wrapf(err, "[WriteDot] add path %d", p)
		}
	}
	_, err := io.WriteString(w, dg.String())
	return errors.Wrap(err, "[WriteDot]")
}

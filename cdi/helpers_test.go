package cdi

import (
	"fmt"
	"math/rand/v2"

	"github.com/c360studio/ddicdi/dataset"
)

// findNode returns the node of g with the given identifier.
func findNode(g *Graph, id string) (Node, bool) {
	for _, node := range g.Nodes {
		if node.NodeID() == id {
			return node, true
		}
	}
	return nil, false
}

// referenceIssues returns dangling references and duplicate identifiers.
func referenceIssues(nodes []Node) []string {
	var issues []string
	ids := make(map[string]int, len(nodes))
	for _, n := range nodes {
		ids[n.NodeID()]++
	}
	for id, c := range ids {
		if c > 1 {
			issues = append(issues, fmt.Sprintf("duplicate %s x%d", id, c))
		}
	}
	for _, n := range nodes {
		for _, f := range n.Fields() {
			if f.Kind != FieldRef {
				continue
			}
			for _, r := range f.Refs {
				if ids[r.ID] == 0 {
					issues = append(issues, fmt.Sprintf("%s.%s -> %s", n.NodeID(), f.Name, r.ID))
				}
			}
		}
	}
	return issues
}

func refIDs(rs []Ref) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func nodesOfType(nodes []Node, typ string) []Node {
	var out []Node
	for _, n := range nodes {
		if n.NodeType() == typ {
			out = append(out, n)
		}
	}
	return out
}

// scoreDataset is the id/score example: three rows, one identifier and one
// scale measure with a null.
func scoreDataset() (*dataset.Table, *dataset.Metadata) {
	meta := dataset.NewMetadata("id", "score")
	meta.DeclaredTypes["id"] = "int64"
	meta.DeclaredTypes["score"] = "int64"
	meta.MeasurementLevels["score"] = dataset.LevelScale
	meta.IdentifierVars = []string{"id"}
	meta.MeasureVars = []string{"score"}
	meta.RowCount = 3

	table := dataset.NewTable()
	_ = table.Set("id", []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Int(3)})
	_ = table.Set("score", []dataset.Value{dataset.Int(10), dataset.Int(20), dataset.Null()})
	return table, meta
}

// randomDataset builds a dataset from a seed: up to five columns of small
// integers with nulls, random value labels, missing ranges or user missing
// values, and random roles.
func randomDataset(seed uint64) (*dataset.Table, *dataset.Metadata) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ncols := 1 + r.IntN(5)
	rows := r.IntN(9)

	names := make([]string, ncols)
	for i := range names {
		names[i] = fmt.Sprintf("v%d", i)
	}
	meta := dataset.NewMetadata(names...)
	meta.RowCount = rows
	table := dataset.NewTable()

	useRanges := r.IntN(2) == 0
	for _, name := range names {
		col := make([]dataset.Value, rows)
		for i := range col {
			if r.IntN(6) == 0 {
				col[i] = dataset.Null()
			} else {
				col[i] = dataset.Int(int64(r.IntN(21) - 10))
			}
		}
		_ = table.Set(name, col)
		meta.DeclaredTypes[name] = []string{"int64", "float", "string", "mystery"}[r.IntN(4)]
		meta.MeasurementLevels[name] = []dataset.MeasurementLevel{
			dataset.LevelNominal, dataset.LevelOrdinal, dataset.LevelScale, dataset.LevelUnknown,
		}[r.IntN(4)]

		if r.IntN(2) == 0 {
			for v := -10; v <= 10; v++ {
				if r.IntN(4) == 0 {
					meta.ValueLabels[name] = append(meta.ValueLabels[name],
						dataset.ValueLabel{Value: dataset.Int(int64(v)), Label: fmt.Sprintf("label %d", v)})
				}
			}
		}
		switch r.IntN(3) {
		case 0:
			if useRanges {
				lo := int64(r.IntN(21) - 10)
				meta.MissingRanges[name] = dataset.Ranges{{Lo: dataset.Int(lo), Hi: dataset.Int(lo + int64(r.IntN(4)))}}
			} else {
				meta.MissingUserValues[name] = []dataset.Value{dataset.Int(int64(r.IntN(21) - 10))}
			}
		case 1:
			meta.MissingUserValues[name] = []dataset.Value{dataset.Str("NA")}
		}

		switch r.IntN(4) {
		case 0:
			meta.IdentifierVars = append(meta.IdentifierVars, name)
		case 1:
			meta.AttributeVars = append(meta.AttributeVars, name)
		case 2:
			meta.MeasureVars = append(meta.MeasureVars, name)
		}
	}
	r.Shuffle(len(meta.IdentifierVars), func(i, j int) {
		meta.IdentifierVars[i], meta.IdentifierVars[j] = meta.IdentifierVars[j], meta.IdentifierVars[i]
	})
	return table, meta
}

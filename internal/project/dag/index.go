package dag

import (
	"fmt"

	"fortio.org/safecast"
)

// ModuleID is a record's position in first-discovery order.
type ModuleID uint32

// ModuleIndex is a dense numbering of a snapshot of the graph.
type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// BuildIndex numbers records by discovery order.
func BuildIndex(records []*Record) ModuleIndex {
	idx := ModuleIndex{
		NameToID: make(map[string]ModuleID, len(records)),
		IDToName: make([]string, len(records)),
	}
	for i, rec := range records {
		id, err := safecast.Conv[ModuleID](i)
		if err != nil {
			panic(fmt.Errorf("module id overflow: %w", err))
		}
		idx.NameToID[rec.ID] = id
		idx.IDToName[i] = rec.ID
	}
	return idx
}

func (idx ModuleIndex) Names(ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

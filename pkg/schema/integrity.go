package schema

import (
	"fmt"

	"github.com/ritzau/promptgraph/pkg/model"
)

// CheckIntegrity reports cross-reference problems that the structural pass
// does not look at: empty or duplicate node ids and relationship endpoints
// that name no node. Relationships are never dropped; each dangling endpoint
// becomes an error.
func CheckIntegrity(doc *model.GraphDocument) []ValidationError {
	var errs []ValidationError

	firstIndex := make(map[string]int, len(doc.Nodes))
	for i, node := range doc.Nodes {
		path := Path{Field("nodes"), Index(i), Field("id")}
		if node.ID == "" {
			errs = append(errs, ValidationError{Path: path, Code: CodeEmptyID, Message: "node id must not be empty"})
			continue
		}
		if first, seen := firstIndex[node.ID]; seen {
			errs = append(errs, ValidationError{
				Path:    path,
				Code:    CodeDuplicateID,
				Message: fmt.Sprintf("duplicate node id %q, first used by nodes[%d]", node.ID, first),
			})
			continue
		}
		firstIndex[node.ID] = i
	}

	for i, rel := range doc.Relationships {
		if _, ok := firstIndex[rel.SourceID]; !ok {
			errs = append(errs, ValidationError{
				Path:    Path{Field("relationships"), Index(i), Field("source_id")},
				Code:    CodeDanglingSource,
				Message: fmt.Sprintf("source_id %q does not name a node", rel.SourceID),
			})
		}
		if _, ok := firstIndex[rel.TargetID]; !ok {
			errs = append(errs, ValidationError{
				Path:    Path{Field("relationships"), Index(i), Field("target_id")},
				Code:    CodeDanglingTarget,
				Message: fmt.Sprintf("target_id %q does not name a node", rel.TargetID),
			})
		}
	}

	return errs
}

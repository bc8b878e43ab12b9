package projection

import (
	"strings"

	"github.com/ritzau/promptgraph/pkg/model"
)

// Tooltip renders the hover text for a node: "label (group)" followed by one
// "key: value" line per property.
func Tooltip(node model.ProjectedNode) string {
	return tooltip(node.Label+" ("+node.Group+")", node.Properties)
}

// LinkTooltip renders the hover text for a link.
func LinkTooltip(link model.ProjectedLink) string {
	return tooltip(link.Label, link.Properties)
}

// FormatProperties joins properties as "key: value" lines.
func FormatProperties(props model.Properties) string {
	lines := make([]string, len(props))
	for i, p := range props {
		lines[i] = p.Key + ": " + p.Value.String()
	}
	return strings.Join(lines, "\n")
}

func tooltip(head string, props model.Properties) string {
	if len(props) == 0 {
		return head
	}
	return head + "\n" + FormatProperties(props)
}

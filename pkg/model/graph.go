package model

// GraphDocument is the typed form of a model's structured graph output.
// Documents are built by the schema package from untrusted input and are not
// mutated after validation.
type GraphDocument struct {
	Metadata      GraphMetadata       `json:"metadata"`
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
}

// GraphMetadata is descriptive only; projection ignores it.
type GraphMetadata struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Date      string `json:"date"`
}

// GraphNode is an entity in a graph document.
// Type is a free-form category label such as "Company" or "Person".
type GraphNode struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Properties Properties `json:"properties"`
}

// GraphRelationship is a directed edge from SourceID to TargetID.
// Properties is nil when the input omitted them.
type GraphRelationship struct {
	SourceID   string     `json:"source_id"`
	TargetID   string     `json:"target_id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	Properties Properties `json:"properties,omitzero"`
}

// Property is a single key/value pair. Nodes and relationships carry an
// ordered sequence of them rather than a map, so duplicate keys can occur.
type Property struct {
	Key   string        `json:"key"`
	Value PropertyValue `json:"value"`
}

// Properties is an ordered property bag.
type Properties []Property

// Lookup returns the value of the first property named key.
func (p Properties) Lookup(key string) (PropertyValue, bool) {
	for _, prop := range p {
		if prop.Key == key {
			return prop.Value, true
		}
	}
	return PropertyValue{}, false
}

// Clone returns a copy that shares no backing array with p.
// A nil bag stays nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	copy(out, p)
	return out
}

// ProjectedGraph is the renderer-ready form of a GraphDocument.
type ProjectedGraph struct {
	Nodes []ProjectedNode `json:"nodes"`
	Links []ProjectedLink `json:"links"`
}

// ProjectedNode is a node as handed to the force-graph renderer.
// Group is the lowercased node type and drives per-category styling.
type ProjectedNode struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Group      string     `json:"group"`
	Properties Properties `json:"properties"`
}

// ProjectedLink is a directed link between two node ids.
type ProjectedLink struct {
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties,omitzero"`
}

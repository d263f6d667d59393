package types

import (
	"errors"
	"fmt"
	"strings"
)

// NodeLabel identifies the kind of a graph node
type NodeLabel string

const (
	LabelProject   NodeLabel = "Project"
	LabelPackage   NodeLabel = "Package"
	LabelModule    NodeLabel = "Module"
	LabelFolder    NodeLabel = "Folder"
	LabelFile      NodeLabel = "File"
	LabelClass     NodeLabel = "Class"
	LabelFunction  NodeLabel = "Function"
	LabelMethod    NodeLabel = "Method"
	LabelVariable  NodeLabel = "Variable"
	LabelInterface NodeLabel = "Interface"
	LabelEnum      NodeLabel = "Enum"
	LabelDecorator NodeLabel = "Decorator"
	LabelImport    NodeLabel = "Import"
	LabelType      NodeLabel = "Type"
	LabelCommunity NodeLabel = "Community"
	LabelProcess   NodeLabel = "Process"
)

// AllLabels lists every node label in a stable order
var AllLabels = []NodeLabel{
	LabelProject, LabelPackage, LabelModule, LabelFolder, LabelFile,
	LabelClass, LabelFunction, LabelMethod, LabelVariable, LabelInterface,
	LabelEnum, LabelDecorator, LabelImport, LabelType,
	LabelCommunity, LabelProcess,
}

// idPrefixes maps the deterministic node id prefix to its label.
// Community and Process use synthetic comm_/proc_ ids.
var idPrefixes = map[string]NodeLabel{
	"proj_":   LabelProject,
	"pkg_":    LabelPackage,
	"mod_":    LabelModule,
	"folder_": LabelFolder,
	"file_":   LabelFile,
	"class_":  LabelClass,
	"func_":   LabelFunction,
	"method_": LabelMethod,
	"var_":    LabelVariable,
	"iface_":  LabelInterface,
	"enum_":   LabelEnum,
	"deco_":   LabelDecorator,
	"import_": LabelImport,
	"type_":   LabelType,
	"comm_":   LabelCommunity,
	"proc_":   LabelProcess,
}

var labelPrefixes = func() map[NodeLabel]string {
	m := make(map[NodeLabel]string, len(idPrefixes))
	for p, l := range idPrefixes {
		m[l] = p
	}
	return m
}()

// ErrUnknownLabel is returned when an id prefix does not map to a label
var ErrUnknownLabel = errors.New("unknown node label")

// LabelForID derives the node label from the deterministic id prefix
func LabelForID(id string) (NodeLabel, error) {
	idx := strings.Index(id, "_")
	if idx < 0 {
		return "", fmt.Errorf("%w: id %q has no prefix", ErrUnknownLabel, id)
	}
	label, ok := idPrefixes[id[:idx+1]]
	if !ok {
		return "", fmt.Errorf("%w: id %q", ErrUnknownLabel, id)
	}
	return label, nil
}

// PrefixForLabel returns the deterministic id prefix for a label
func PrefixForLabel(label NodeLabel) (string, error) {
	p, ok := labelPrefixes[label]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return p, nil
}

// ValidLabel reports whether label is in the closed label set
func ValidLabel(label NodeLabel) bool {
	_, ok := labelPrefixes[label]
	return ok
}

// GraphNode is one resolved node of the code knowledge graph. The property
// bag is label-dependent; see PropString for tolerant access.
type GraphNode struct {
	ID         string         `json:"id"`
	Label      NodeLabel      `json:"label"`
	Properties map[string]any `json:"properties"`
}

// PropString returns a string property, tolerating absent or non-string values
func (n *GraphNode) PropString(key string) string {
	if n.Properties == nil {
		return ""
	}
	switch v := n.Properties[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// PropFloat returns a numeric property as float64, zero when absent
func (n *GraphNode) PropFloat(key string) float64 {
	if n.Properties == nil {
		return 0
	}
	switch v := n.Properties[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// PropInt returns a numeric property as int, zero when absent
func (n *GraphNode) PropInt(key string) int {
	return int(n.PropFloat(key))
}

// Validate checks node invariants: a known label and, outside the synthetic
// Community/Process ids, an id prefix that agrees with the label.
func (n *GraphNode) Validate() error {
	if n.ID == "" {
		return errors.New("node id is required")
	}
	if !ValidLabel(n.Label) {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, n.Label)
	}
	derived, err := LabelForID(n.ID)
	if err != nil {
		return err
	}
	if derived != n.Label {
		return fmt.Errorf("id prefix of %q encodes %s, node labeled %s", n.ID, derived, n.Label)
	}
	return nil
}

// RelType identifies the kind of a graph relationship
type RelType string

const (
	RelContains      RelType = "CONTAINS"
	RelCalls         RelType = "CALLS"
	RelInherits      RelType = "INHERITS"
	RelOverrides     RelType = "OVERRIDES"
	RelImports       RelType = "IMPORTS"
	RelUses          RelType = "USES"
	RelDefines       RelType = "DEFINES"
	RelDecorates     RelType = "DECORATES"
	RelImplements    RelType = "IMPLEMENTS"
	RelExtends       RelType = "EXTENDS"
	RelMemberOf      RelType = "MEMBER_OF"
	RelStepInProcess RelType = "STEP_IN_PROCESS"
)

var relTypes = map[RelType]bool{
	RelContains: true, RelCalls: true, RelInherits: true, RelOverrides: true,
	RelImports: true, RelUses: true, RelDefines: true, RelDecorates: true,
	RelImplements: true, RelExtends: true, RelMemberOf: true, RelStepInProcess: true,
}

// ValidRelType reports whether t is in the closed relationship type set
func ValidRelType(t RelType) bool {
	return relTypes[t]
}

// GraphRelationship is a confidence-scored directed edge between two nodes.
// Confidence 1.0 means statically certain; lower values mark heuristic or
// fuzzy resolution. Reason is empty for non-CALLS edges. Step is the
// 1-indexed position within a Process, present only on STEP_IN_PROCESS.
type GraphRelationship struct {
	ID         string  `json:"id"`
	SourceID   string  `json:"sourceId"`
	TargetID   string  `json:"targetId"`
	Type       RelType `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Step       int     `json:"step,omitempty"`
}

// Validate checks relationship invariants
func (r *GraphRelationship) Validate() error {
	if r.SourceID == "" || r.TargetID == "" {
		return errors.New("relationship endpoints are required")
	}
	if !ValidRelType(r.Type) {
		return fmt.Errorf("invalid relationship type %q", r.Type)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	if r.Step != 0 && r.Type != RelStepInProcess {
		return errors.New("step is only valid on STEP_IN_PROCESS edges")
	}
	return nil
}

// Graph is a full ingestion payload: every node committed before any edge
type Graph struct {
	Nodes         []GraphNode         `json:"nodes"`
	Relationships []GraphRelationship `json:"relationships"`
}

// Package schema declares node types, their property maps, parent
// relations and the two built-in roles (text, container) plus the two
// annotation roles. A Schema is built up with AddNodeClass calls and then
// frozen; nothing may be registered after Freeze.
package schema

import "github.com/systemshift/substance/internal/substance/substanceerr"

// PropertyType is the type of a node property's value.
type PropertyType int

const (
	PropString PropertyType = iota
	PropInteger
	PropBoolean
	PropDate
	PropReference     // single node id
	PropReferenceMany // ordered list of node ids
	PropJSON          // opaque JSON value
)

// Role marks the two built-in node behaviors the core treats specially,
// plus the two annotation shapes. Domain node types (paragraph, heading,
// strong, ...) are declared with the role of whichever built-in they play.
type Role int

const (
	RoleNone Role = iota
	RoleText
	RoleContainer
	RoleAnnotation
	RoleContainerAnnotation
)

// PropertyDef declares one property of a node class.
type PropertyDef struct {
	Name string
	Type PropertyType
}

// NodeClass is the registered definition of one node type.
type NodeClass struct {
	Name       string
	Parent     string // name of the parent type, or "" for a root type
	Role       Role
	Properties []PropertyDef
}

// Property returns the definition for name, and whether it was found.
func (c *NodeClass) Property(name string) (PropertyDef, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDef{}, false
}

// Schema is the immutable-after-freeze registry of node classes.
type Schema struct {
	Name            string
	Version         string
	classes         map[string]*NodeClass
	defaultTextType string
	frozen          bool
}

// New creates an empty, mutable schema.
func New(name, version string) *Schema {
	return &Schema{
		Name:    name,
		Version: version,
		classes: make(map[string]*NodeClass),
	}
}

// AddNodeClass registers a node class. Fails with SchemaConflict if the
// type name is already registered, and with InvalidOperation if the
// schema has been frozen.
func (s *Schema) AddNodeClass(c NodeClass) error {
	if s.frozen {
		return substanceerr.InvalidOperation("schema is frozen")
	}
	if _, exists := s.classes[c.Name]; exists {
		return substanceerr.SchemaConflict(c.Name)
	}
	cc := c
	s.classes[cc.Name] = &cc
	return nil
}

// SetDefaultTextType names the node type created for plain text content
// when a caller does not specify one explicitly (e.g. splitting a
// paragraph).
func (s *Schema) SetDefaultTextType(nodeType string) error {
	if s.frozen {
		return substanceerr.InvalidOperation("schema is frozen")
	}
	s.defaultTextType = nodeType
	return nil
}

// Freeze prevents further registration. Safe to call more than once.
func (s *Schema) Freeze() {
	s.frozen = true
}

// Frozen reports whether the schema has been frozen.
func (s *Schema) Frozen() bool {
	return s.frozen
}

// GetNodeClass looks up a registered type. Fails with UnknownNodeType if
// not registered.
func (s *Schema) GetNodeClass(nodeType string) (*NodeClass, error) {
	c, ok := s.classes[nodeType]
	if !ok {
		return nil, substanceerr.UnknownNodeType(nodeType)
	}
	return c, nil
}

// GetDefaultTextType returns the schema's default text node type, or ""
// if none was set.
func (s *Schema) GetDefaultTextType() string {
	return s.defaultTextType
}

// IsAnnotationType reports whether nodeType plays the property-scoped
// annotation role. Unknown types report false.
func (s *Schema) IsAnnotationType(nodeType string) bool {
	c, ok := s.classes[nodeType]
	return ok && c.Role == RoleAnnotation
}

// IsContainerAnnotationType reports whether nodeType plays the
// container-annotation role. Unknown types report false.
func (s *Schema) IsContainerAnnotationType(nodeType string) bool {
	c, ok := s.classes[nodeType]
	return ok && c.Role == RoleContainerAnnotation
}

// IsTextType reports whether nodeType plays the text role.
func (s *Schema) IsTextType(nodeType string) bool {
	c, ok := s.classes[nodeType]
	return ok && c.Role == RoleText
}

// IsContainerType reports whether nodeType plays the container role.
func (s *Schema) IsContainerType(nodeType string) bool {
	c, ok := s.classes[nodeType]
	return ok && c.Role == RoleContainer
}

// IsInstanceOf reports whether nodeType is ancestorType or descends from
// it through Parent links. Used to check that a node reference targets a
// type permitted by the schema (spec invariant 2).
func (s *Schema) IsInstanceOf(nodeType, ancestorType string) bool {
	seen := make(map[string]bool)
	for nodeType != "" {
		if nodeType == ancestorType {
			return true
		}
		if seen[nodeType] {
			return false // cyclic parent chain, guard against infinite loop
		}
		seen[nodeType] = true
		c, ok := s.classes[nodeType]
		if !ok {
			return false
		}
		nodeType = c.Parent
	}
	return false
}

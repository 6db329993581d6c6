package model

import "strings"

// Datastandard is the root of a product data model definition.
// Any of the three collections may be nil when the source document omitted
// them; an empty collection is a valid, complete document.
type Datastandard struct {
	// Categories form a tree through Category.ParentID.
	Categories []Category `json:"categories" yaml:"categories"`

	// Attributes are the typed fields that categories link to.
	Attributes []Attribute `json:"attributes" yaml:"attributes"`

	// AttributeGroups are thematic tags referenced by Attribute.GroupIDs.
	AttributeGroups []AttributeGroup `json:"attributeGroups" yaml:"attributeGroups"`
}

// IsComplete reports whether ds is non-nil and carries all three collections.
func (ds *Datastandard) IsComplete() bool {
	return ds != nil &&
		ds.Categories != nil &&
		ds.Attributes != nil &&
		ds.AttributeGroups != nil
}

// Category is a node in the classification tree.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	// ParentID is nil for root categories.
	ParentID *string `json:"parentId,omitempty" yaml:"parentId,omitempty"`

	// AttributeLinks lists the attributes that apply to this category,
	// in the order they should be reported.
	AttributeLinks []AttributeLink `json:"attributeLinks" yaml:"attributeLinks"`
}

// Parent returns the parent category id and whether one is set.
func (c *Category) Parent() (string, bool) {
	if c.ParentID == nil {
		return "", false
	}
	return *c.ParentID, true
}

// Attribute is a named, typed data field.
type Attribute struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description *string       `json:"description,omitempty" yaml:"description,omitempty"`
	Type        AttributeType `json:"type" yaml:"type"`
	GroupIDs    []string      `json:"groupIds" yaml:"groupIds"`

	// AttributeLinks is non-empty only for composite attributes.
	AttributeLinks []AttributeLink `json:"attributeLinks,omitempty" yaml:"attributeLinks,omitempty"`
}

// IsComposite reports whether the attribute contains nested attributes.
// Compositeness is structural; there is no separate flag.
func (a *Attribute) IsComposite() bool {
	return len(a.AttributeLinks) > 0
}

// IsMultiValue reports whether the attribute holds a collection of values.
func (a *Attribute) IsMultiValue() bool {
	return a.Type.MultiValue != nil && *a.Type.MultiValue
}

// DescriptionText returns the description, or "" when it is absent or blank.
func (a *Attribute) DescriptionText() string {
	if a.Description == nil || strings.TrimSpace(*a.Description) == "" {
		return ""
	}
	return *a.Description
}

// AttributeType describes the value type of an attribute.
type AttributeType struct {
	ID         string `json:"id" yaml:"id"`
	MultiValue *bool  `json:"multiValue,omitempty" yaml:"multiValue,omitempty"`
}

// AttributeLink references an attribute from a category or a composite
// attribute. Optionality belongs to the link, not to the attribute, so the
// same attribute can be mandatory in one place and optional in another.
type AttributeLink struct {
	ID       string `json:"id" yaml:"id"`
	Optional *bool  `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// IsOptional reports whether the link is explicitly marked optional.
// An absent flag means mandatory.
func (l AttributeLink) IsOptional() bool {
	return l.Optional != nil && *l.Optional
}

// AttributeGroup is a named tag used to group attributes thematically.
type AttributeGroup struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

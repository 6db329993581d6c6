package builder

import "github.com/nao1215/dsreport/internal/model"

// lookup holds the id -> entity tables of one Datastandard.
type lookup struct {
	categories map[string]*model.Category
	attributes map[string]*model.Attribute
	groups     map[string]*model.AttributeGroup
}

// newLookup indexes all three collections of ds. ds must be complete.
func newLookup(ds *model.Datastandard) (*lookup, error) {
	categories, err := indexByID(KindCategory, ds.Categories, func(c *model.Category) string { return c.ID })
	if err != nil {
		return nil, err
	}
	attributes, err := indexByID(KindAttribute, ds.Attributes, func(a *model.Attribute) string { return a.ID })
	if err != nil {
		return nil, err
	}
	groups, err := indexByID(KindAttributeGroup, ds.AttributeGroups, func(g *model.AttributeGroup) string { return g.ID })
	if err != nil {
		return nil, err
	}
	return &lookup{
		categories: categories,
		attributes: attributes,
		groups:     groups,
	}, nil
}

// indexByID maps the id of every item to a pointer into items.
func indexByID[T any](kind string, items []T, id func(*T) string) (map[string]*T, error) {
	m := make(map[string]*T, len(items))
	for i := range items {
		item := &items[i]
		key := id(item)
		if _, ok := m[key]; ok {
			return nil, duplicate(kind, key)
		}
		m[key] = item
	}
	return m, nil
}

// ancestry returns the category with the given id followed by its parent,
// grandparent and so on. The walk ends at a category without parent or
// whose parent id does not resolve. An unknown id yields an empty chain.
func (l *lookup) ancestry(categoryID string) ([]*model.Category, error) {
	var chain []*model.Category
	seen := make(map[string]bool)

	category, ok := l.categories[categoryID]
	for ok {
		if seen[category.ID] {
			path := make([]string, 0, len(chain)+1)
			for _, c := range chain {
				path = append(path, c.ID)
			}
			return nil, cycle(ErrCyclicCategory, append(path, category.ID))
		}
		seen[category.ID] = true
		chain = append(chain, category)

		parentID, hasParent := category.Parent()
		if !hasParent {
			break
		}
		category, ok = l.categories[parentID]
	}
	return chain, nil
}

// attribute resolves the target of link, held by the given owner.
func (l *lookup) attribute(link model.AttributeLink, ownerKind, ownerID string) (*model.Attribute, error) {
	attr, ok := l.attributes[link.ID]
	if !ok {
		return nil, unknown(ownerKind, ownerID, KindAttribute, link.ID)
	}
	return attr, nil
}

// group resolves a group id of attr.
func (l *lookup) group(attr *model.Attribute, groupID string) (*model.AttributeGroup, error) {
	g, ok := l.groups[groupID]
	if !ok {
		return nil, unknown(KindAttribute, attr.ID, KindAttributeGroup, groupID)
	}
	return g, nil
}

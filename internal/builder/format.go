package builder

import (
	"slices"
	"strings"

	"github.com/nao1215/dsreport/internal/model"
)

const (
	// mandatoryMarker is appended to the name of non-optional attributes.
	mandatoryMarker = "*"

	// multiValueSuffix is appended to the type of multi-value attributes.
	multiValueSuffix = "[]"

	// nestedIndent prefixes every member line of a composite type.
	nestedIndent = "  "

	// groupSeparator joins group names in the Groups column.
	groupSeparator = "\n"
)

// row builds the report row of one attribute link of category.
func (l *lookup) row(category *model.Category, link model.AttributeLink) (model.Row, error) {
	attr, err := l.attribute(link, KindCategory, category.ID)
	if err != nil {
		return nil, err
	}

	typ, err := l.typeString(attr, []string{attr.ID})
	if err != nil {
		return nil, err
	}

	groups, err := l.groupNames(attr)
	if err != nil {
		return nil, err
	}

	row := make(model.Row, model.ColumnCount)
	row[model.ColumnCategoryName] = category.Name
	row[model.ColumnAttributeName] = attributeName(attr, link)
	row[model.ColumnDescription] = attr.DescriptionText()
	row[model.ColumnType] = typ
	row[model.ColumnGroups] = groups
	return row, nil
}

// attributeName returns the attribute name as seen through link.
func attributeName(attr *model.Attribute, link model.AttributeLink) string {
	if link.IsOptional() {
		return attr.Name
	}
	return attr.Name + mandatoryMarker
}

// typeString renders the type of attr. For composites the members are
// rendered recursively; path holds the ids of the composites being expanded
// on the current branch, attr included.
func (l *lookup) typeString(attr *model.Attribute, path []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(attr.Type.ID)

	if attr.IsComposite() {
		sb.WriteString("{\n")
		for _, link := range attr.AttributeLinks {
			nested, err := l.attribute(link, KindAttribute, attr.ID)
			if err != nil {
				return "", err
			}
			nestedPath := append(slices.Clip(path), nested.ID)
			if slices.Contains(path, nested.ID) {
				return "", cycle(ErrCyclicAttribute, nestedPath)
			}

			nestedType, err := l.typeString(nested, nestedPath)
			if err != nil {
				return "", err
			}

			sb.WriteString(nestedIndent)
			sb.WriteString(attributeName(nested, link))
			sb.WriteString(": ")
			sb.WriteString(nestedType)
			sb.WriteString("\n")
		}
		sb.WriteString("}")
	}

	if attr.IsMultiValue() {
		sb.WriteString(multiValueSuffix)
	}
	return sb.String(), nil
}

// groupNames joins the names of attr's groups in declared order.
func (l *lookup) groupNames(attr *model.Attribute) (string, error) {
	names := make([]string, 0, len(attr.GroupIDs))
	for _, id := range attr.GroupIDs {
		g, err := l.group(attr, id)
		if err != nil {
			return "", err
		}
		names = append(names, g.Name)
	}
	return strings.Join(names, groupSeparator), nil
}

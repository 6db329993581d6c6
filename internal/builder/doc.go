// Package builder turns a Datastandard into the flat attribute report of one
// category.
//
// For a category the report lists every attribute link of the category
// itself and of each of its ancestors, nearest first. Each row carries the
// owning category name, the attribute name (mandatory links are marked with
// a trailing "*"), the description, a type string and the attribute's group
// names. Composite attributes are expanded recursively into their type
// string:
//
//	measure{
//	  Amount*: decimal
//	  Unit: string
//	}[]
//
// Nested lines always use a two-space prefix, whatever the nesting depth.
// Existing consumers parse this layout, so deeper levels are not indented
// further.
//
// Lookup tables are built from scratch every time a report is iterated; no
// state is shared between calls, so a Builder is safe for concurrent use as
// long as the Datastandard is not modified while it is read.
package builder

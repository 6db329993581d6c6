// Package main provides the entry point for the dsreport CLI.
//
// dsreport turns a datastandard (categories, attributes and attribute
// groups) into a flat report of the attributes that apply to a category,
// including inherited and composite attributes.
//
// Usage:
//
//	dsreport report -s datastandard.json <category-id>
//	dsreport serve -s https://example.com/datastandard.json
//
// See --help for all available options.
package main

// main is the entry point for dsreport.
func main() {
	Execute()
}

// Package hierarchical encodes datasets as a single nested document.
//
// The document is rooted at a caller-chosen name and holds one
// "<Type>List" element per type section, each holding one "<Type>" element
// per record. Inside a record element every field is a child element named
// after the field. Scalars hold text, references hold the nested identity
// of their target, and relation fields hold one "<RelatedType>" element per
// member.
//
// The same element tree is rendered as XML or YAML. Parsing is strict in
// both renderings: element and field names are checked against the schema.
package hierarchical

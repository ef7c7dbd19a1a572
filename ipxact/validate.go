package ipxact

// ValidationResult carries a Validator's verdict on one rendered
// document: whether it conforms to the target revision's schema, and
// the schema-level complaints if it does not.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validator checks a rendered IP-XACT document against the XSD for the
// revision it claims to be. No implementation ships here (per the
// Non-goals — XSD validation is out of scope); this interface exists so
// a caller can plug in a local or remote validator (e.g. one shelling
// out to xmllint, or fetching the schema from SchemaLocation) without
// the serializer itself depending on a validation library.
type Validator interface {
	Validate(doc string, rev Revision) (ValidationResult, error)
}

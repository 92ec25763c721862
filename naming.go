package rest

import (
	"strings"
	"unicode"
)

// snakeCase converts "PetOwner" or "petOwner" to "pet_owner". Names that
// are already snake_case are returned unchanged.
func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' &&
				(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			r = '_'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// pascalCase converts "pet_owner" to "PetOwner".
func pascalCase(s string) string {
	var b strings.Builder
	for part := range strings.FieldsFuncSeq(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' }) {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// typeName converts a schema name into a definition name for the document.
func typeName(name string) string {
	if trimmed := strings.TrimSuffix(name, "Schema"); trimmed != "" {
		name = trimmed
	}
	return pascalCase(name)
}

// operationName returns the operationId of an operation. Node operations
// are named after the verb alone (tags group them by subject); edge
// operations add the object name.
func operationName(op Operation, ns *Namespace) string {
	if op.IsEdge() {
		return op.Name() + "_" + ns.ObjectName()
	}
	return op.Name()
}

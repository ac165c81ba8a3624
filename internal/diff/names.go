package diff

import "strings"

// CamelPath converts a dotted key path to a camel-cased identifier
// fragment: the first letter and every letter following a '.' or '_'
// is capitalized and the separators are dropped. "profile.name"
// becomes "ProfileName", "allow_chat" becomes "AllowChat".
//
// Generated migration scripts expose these names for user-supplied
// hooks, so the transform must stay byte-stable across releases.
func CamelPath(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	upper := true
	for _, r := range key {
		if r == '.' || r == '_' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HandlerName derives the symbolic handler name for an operation kind
// applied at a key path, e.g. ("add", "profile.name") -> "addProfileName".
func HandlerName(kind Kind, key string) string {
	return string(kind) + CamelPath(key)
}

// handlerNames fills in Fn and Rollback for a single-key operation.
func handlerNames(op *Operation) {
	switch op.Kind {
	case Add, Remove, Update:
		op.Fn = HandlerName(op.Kind, op.Key)
		op.Rollback = HandlerName(op.Kind.Inverse(), op.Key)
	case Move, Rename:
		op.Fn = HandlerName(op.Kind, op.NewKey)
		op.Rollback = HandlerName(op.Kind, op.OldKey)
	}
}

package sync

// MergeMode controls how a server field-group combines with defaults on
// initial load.
type MergeMode int

const (
	// ServerWins replaces the whole group with the server copy when the
	// server has one.
	ServerWins MergeMode = iota
	// ServerExtendsDefaults overlays server fields onto the defaults, so
	// default-only fields survive a partial server document.
	ServerExtendsDefaults
)

// sectionMergeModes is the explicit per-group merge table. This asymmetry is
// load-bearing: several sections ship informational copy that exists only in
// the defaults until an operator edits it, and a uniform deep merge would
// either drop it or resurrect deleted server fields.
var sectionMergeModes = map[string]MergeMode{
	"hero":        ServerWins,
	"collections": ServerWins,
	"seo":         ServerWins,
	"about":       ServerExtendsDefaults,
	"materials":   ServerExtendsDefaults,
	"contact":     ServerExtendsDefaults,
	"settings":    ServerExtendsDefaults,
}

// MergeSections combines the server's sections into the defaults according
// to the merge table. Groups the server never returned keep their defaults;
// groups only the server knows are kept as-is. The merge is deterministic
// and side-effect-free: inputs are never mutated.
func MergeSections(defaults, server map[string]map[string]interface{}) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(defaults)+len(server))

	for key, doc := range defaults {
		out[key] = copyDoc(doc)
	}
	for key, serverDoc := range server {
		if len(serverDoc) == 0 {
			continue
		}
		base, ok := out[key]
		if !ok || sectionMergeModes[key] == ServerWins {
			out[key] = copyDoc(serverDoc)
			continue
		}
		for field, value := range serverDoc {
			base[field] = value
		}
	}
	return out
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

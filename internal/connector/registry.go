package connector

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// defaultHTTPTimeout bounds a single provider API call. Callers put a tighter
// deadline on the context when dispatching passcodes.
const defaultHTTPTimeout = 15 * time.Second

// Implementation is one entry of the static table of known connectors. A
// connector is resolved by its stable id; there is no runtime plugin loading.
// Exactly one of NewSender and NewSocial is non-nil, matching the type.
type Implementation struct {
	Metadata       Metadata
	ValidateConfig ValidateFunc
	NewSender      func(raw json.RawMessage) (Sender, error)
	NewSocial      func(raw json.RawMessage) (SocialExchanger, error)
}

var implementations = map[string]*Implementation{}

// register adds an implementation to the static table. Called from init
// functions of the implementation files; duplicate ids panic at startup.
func register(impl *Implementation) {
	if _, exists := implementations[impl.Metadata.ID]; exists {
		panic("connector: duplicate implementation id " + impl.Metadata.ID)
	}
	implementations[impl.Metadata.ID] = impl
}

// ResolveImplementation returns the implementation bound to id, or false when
// no provider with that id is known.
func ResolveImplementation(id string) (*Implementation, bool) {
	impl, ok := implementations[id]
	return impl, ok
}

// Implementations returns all known implementations ordered by id. Used for
// listing and seeding.
func Implementations() []*Implementation {
	out := make([]*Implementation, 0, len(implementations))
	for _, impl := range implementations {
		out = append(out, impl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.ID < out[j].Metadata.ID })
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

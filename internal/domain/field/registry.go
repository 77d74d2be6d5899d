package field

// Registry exposes the field types registered by the host, in registration
// order. Duplicates are kept; fields without a type are skipped.
type Registry interface {
	ListRegisteredTypes() []string
}

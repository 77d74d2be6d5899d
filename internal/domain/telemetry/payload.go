// internal/domain/telemetry/payload.go
package telemetry

// HostInfo is the host metadata reported with each payload. Missing values
// are reported as empty strings.
type HostInfo struct {
	Name   string
	Author string
	URI    string
}

// Payload is the anonymous usage report. It is rebuilt on every notice render
// and every send attempt and never persisted.
type Payload struct {
	RuntimeVersion string   `json:"runtimeVersion"`
	HostName       string   `json:"hostName"`
	HostAuthor     string   `json:"hostAuthor"`
	HostURI        string   `json:"hostUri"`
	FieldTypesUsed []string `json:"fieldTypesUsed"`
}


package core

// SyncStatus reports whether a mutation reached the remote store.
type SyncStatus struct {
	RemoteOK bool   `json:"remote_ok"`
	Error    string `json:"error,omitempty"`
}

// LocalOnly is the status of mutations when no remote store is configured.
var LocalOnly = SyncStatus{RemoteOK: false, Error: "remote sync not configured"}

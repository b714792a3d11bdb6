// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// ArtifactArchiveTask represents an uploaded artifact whose raw bytes have
// already been written to object storage and now need an audit record.
type ArtifactArchiveTask struct {
	UserID      string `json:"user_id"`
	FileName    string `json:"file_name"`
	ObjectName  string `json:"object_name"`
	ContentType string `json:"content_type"`
	SourceKind  string `json:"source_kind"`
}

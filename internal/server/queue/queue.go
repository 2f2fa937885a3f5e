// Package queue is the outbound message-passing boundary towards the
// best-effort analysis pipeline. The server publishes a task after a
// successful upload and never waits for a result; the consumer is a
// separate process with its own pace.
package queue

import "context"

// AnalysisTask asks the analysis worker to annotate one node.
type AnalysisTask struct {
	NodeID     string `json:"nodeId"`
	StorageKey string `json:"storageKey"`
	MimeType   string `json:"mimeType"`
}

type Publisher interface {
	PublishAnalysis(ctx context.Context, task AnalysisTask) error
}

// Package worker is the analysis consumer: it drains the analysis queue
// and annotates nodes with coarse tags and a one-line summary. The server
// never sees plaintext, so everything here is derived from the metadata
// the client declared, not from the blob.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cipherdrive/internal/common"
	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	"github.com/dmitrijs2005/cipherdrive/internal/server/queue"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
)

// consumeTimeout is the BRPOP blocking window per iteration.
const consumeTimeout = 5 * time.Second

type Consumer interface {
	Consume(ctx context.Context, timeout time.Duration) (*queue.AnalysisTask, error)
}

type Analyzer struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	consumer    Consumer
	logger      logging.Logger
}

func NewAnalyzer(db *sql.DB, m repomanager.RepositoryManager, c Consumer, l logging.Logger) *Analyzer {
	return &Analyzer{
		db:          db,
		repomanager: m,
		consumer:    c,
		logger:      l.With("module", "analyzer"),
	}
}

// Run consumes tasks until ctx is cancelled. Every task is best effort: a
// failed annotation is logged and dropped, never retried into a loop.
func (a *Analyzer) Run(ctx context.Context) {
	a.logger.Info(ctx, "Starting analyzer...")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info(ctx, "Stopping analyzer...")
			return
		default:
		}

		task, err := a.consumer.Consume(ctx, consumeTimeout)
		if err != nil {
			if errors.Is(err, queue.ErrNoTask) {
				continue
			}
			a.logger.Warn(ctx, "consume failed", "error", err.Error())
			time.Sleep(time.Second)
			continue
		}

		if err := a.process(ctx, task); err != nil {
			a.logger.Warn(ctx, "annotation failed", "node_id", task.NodeID, "error", err.Error())
		}
	}
}

func (a *Analyzer) process(ctx context.Context, task *queue.AnalysisTask) error {
	tags, summary := annotate(task.MimeType)

	repo := a.repomanager.Nodes(a.db)
	if err := repo.SetAnnotations(ctx, task.NodeID, tags, summary); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// node deleted between upload and analysis, nothing to annotate
			return nil
		}
		return fmt.Errorf("set annotations: %w", err)
	}

	a.logger.Info(ctx, "node annotated", "node_id", task.NodeID, "tags", strings.Join(tags, ","))
	return nil
}

// annotate maps a declared mime type onto coarse category tags. The blob
// is ciphertext, so the declared type is all there is to go on.
func annotate(mimeType string) ([]string, string) {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.TrimSpace(strings.ToLower(base))

	category, _, _ := strings.Cut(base, "/")

	var tags []string
	switch category {
	case "image":
		tags = []string{"image", "media"}
	case "video":
		tags = []string{"video", "media"}
	case "audio":
		tags = []string{"audio", "media"}
	case "text":
		tags = []string{"document", "text"}
	case "application":
		switch base {
		case "application/pdf":
			tags = []string{"document", "pdf"}
		case "application/json", "application/xml":
			tags = []string{"document", "data"}
		case "application/zip", "application/gzip", "application/x-tar":
			tags = []string{"archive"}
		default:
			tags = []string{"binary"}
		}
	default:
		tags = []string{"unknown"}
	}

	summary := fmt.Sprintf("Encrypted %s file", tags[0])
	return tags, summary
}

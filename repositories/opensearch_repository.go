package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/barrie-cork/thesis-swarm/models"
)

const DefaultResultsIndex = "processed_results"

type OpenSearchRepository struct {
	client *opensearch.Client
	index  string
}

func NewOpenSearchRepository(client *opensearch.Client, index string) *OpenSearchRepository {
	if index == "" {
		index = DefaultResultsIndex
	}
	return &OpenSearchRepository{client: client, index: index}
}

// IndexResult writes a processed result under its own id, so re-indexing
// the same result overwrites the document.
func (r *OpenSearchRepository) IndexResult(ctx context.Context, result models.ProcessedResult) error {
	document := map[string]interface{}{
		"session_id":    result.SessionID,
		"raw_result_id": result.RawResultID,
		"title":         result.Title,
		"url":           result.URL,
		"snippet":       result.Snippet,
		"domain":        result.Metadata.Domain,
		"file_type":     result.Metadata.FileType,
		"source":        result.Metadata.Source,
		"raw_rank":      result.Metadata.RawRank,
		"processed_at":  result.Metadata.ProcessedAt,
	}

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      r.index,
		DocumentID: strconv.Itoa(result.ID),
		Body:       strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to execute index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing result %d: %s", result.ID, res.String())
	}

	return nil
}

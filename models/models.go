package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SearchSession is the unit of ownership for queries and results
type SearchSession struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int       `gorm:"not null;index" json:"userId"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName overrides the table name
func (SearchSession) TableName() string {
	return "search_sessions"
}

// SearchQuery is a search string defined within a session
type SearchQuery struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   int       `gorm:"not null;index" json:"sessionId"`
	Query       string    `gorm:"type:text;not null" json:"query"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"createdAt"`

	// Relationships
	Session SearchSession `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (SearchQuery) TableName() string {
	return "search_queries"
}

// SearchExecution records one call to the search provider for a query
type SearchExecution struct {
	ID          int        `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID     int        `gorm:"not null;index" json:"queryId"`
	SessionID   int        `gorm:"not null;index" json:"sessionId"`
	Status      string     `gorm:"type:text;not null" json:"status"`
	StartTime   time.Time  `gorm:"type:timestamp with time zone;not null" json:"startTime"`
	EndTime     *time.Time `gorm:"type:timestamp with time zone" json:"endTime,omitempty"`
	ResultCount int        `gorm:"default:0" json:"resultCount"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`

	// Relationships
	Query SearchQuery `gorm:"foreignKey:QueryID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (SearchExecution) TableName() string {
	return "search_executions"
}

// RawSearchResult is one search engine hit, stored as returned
type RawSearchResult struct {
	ID           int    `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID      int    `gorm:"not null;index" json:"queryId"`
	Title        string `gorm:"type:text;not null" json:"title"`
	URL          string `gorm:"type:text;not null" json:"url"`
	Snippet      string `gorm:"type:text" json:"snippet"`
	Rank         int    `gorm:"not null" json:"rank"`
	SearchEngine string `gorm:"type:text;not null" json:"searchEngine"`
	RawResponse  string `gorm:"type:jsonb" json:"rawResponse,omitempty"`

	// Relationships
	Query SearchQuery `gorm:"foreignKey:QueryID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (RawSearchResult) TableName() string {
	return "raw_search_results"
}

// RawResultRow is a raw result annotated with its query text and the id of
// its processed result, if any. It is a read model, not a table.
type RawResultRow struct {
	RawSearchResult
	QueryText         string `gorm:"column:query_text" json:"query"`
	ProcessedResultID *int   `gorm:"column:processed_result_id" json:"processedResultId"`
}

// ResultMetadata is stored as JSONB alongside a processed result
type ResultMetadata struct {
	Domain      string    `json:"domain"`
	FileType    string    `json:"fileType"`
	Source      string    `json:"source"`
	RawRank     int       `json:"rawRank"`
	ProcessedAt time.Time `json:"processedAt"`
}

func (m ResultMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *ResultMetadata) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = ResultMetadata{}
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into ResultMetadata", value)
	}
}

// ProcessedResult is the normalized, deduplication-ready form of one raw result
type ProcessedResult struct {
	ID          int            `gorm:"primaryKey;autoIncrement" json:"id"`
	RawResultID int            `gorm:"not null;uniqueIndex:idx_processed_results_raw_result_id" json:"rawResultId"`
	SessionID   int            `gorm:"not null;index" json:"sessionId"`
	Title       string         `gorm:"type:text;not null" json:"title"`
	URL         string         `gorm:"type:text;not null;index:idx_processed_results_url" json:"url"`
	Snippet     string         `gorm:"type:text" json:"snippet"`
	Metadata    ResultMetadata `gorm:"type:jsonb" json:"metadata"`

	// Relationships
	RawResult RawSearchResult `gorm:"foreignKey:RawResultID;constraint:OnDelete:CASCADE" json:"-"`
	Session   SearchSession   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (ProcessedResult) TableName() string {
	return "processed_results"
}

// DuplicateRelationship links two processed results judged equivalent.
// PrimaryResultID is always the smaller of the two ids.
type DuplicateRelationship struct {
	ID                int       `gorm:"primaryKey;autoIncrement" json:"id"`
	PrimaryResultID   int       `gorm:"not null;index" json:"primaryResultId"`
	DuplicateResultID int       `gorm:"not null;index" json:"duplicateResultId"`
	SimilarityScore   float64   `gorm:"not null" json:"similarityScore"`
	DuplicateType     string    `gorm:"type:text;not null" json:"duplicateType"`
	CreatedAt         time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"createdAt"`

	// Relationships
	PrimaryResult   ProcessedResult `gorm:"foreignKey:PrimaryResultID;constraint:OnDelete:CASCADE" json:"-"`
	DuplicateResult ProcessedResult `gorm:"foreignKey:DuplicateResultID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (DuplicateRelationship) TableName() string {
	return "duplicate_relationships"
}

// All lists every model in dependency order, for migrations
func All() []interface{} {
	return []interface{}{
		&SearchSession{},
		&SearchQuery{},
		&SearchExecution{},
		&RawSearchResult{},
		&ProcessedResult{},
		&DuplicateRelationship{},
	}
}

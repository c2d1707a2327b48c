package mcp

import (
	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/vectordb"
)

// IngestInput takes either a source URI or inline text.
type IngestInput struct {
	URI    string `json:"uri,omitempty"`
	Text   string `json:"text,omitempty"`
	Source string `json:"source,omitempty"`
}

// IngestOutput reports the stored document and its chunk count.
type IngestOutput struct {
	Result *pipeline.IngestResult `json:"result"`
}

// AskInput is a question answered from k retrieved chunks; zero k uses the configured default.
type AskInput struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// AskOutput carries the answer and the chunks it was grounded on.
type AskOutput struct {
	Answer    string           `json:"answer"`
	State     string           `json:"state"`
	NoContext bool             `json:"noContext,omitempty"`
	Chunks    []vectordb.Match `json:"chunks"`
}

// RetrieveInput is a query for the k nearest chunks without generation.
type RetrieveInput struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// RetrieveOutput lists matches in ascending distance.
type RetrieveOutput struct {
	Chunks []vectordb.Match `json:"chunks"`
}

package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultVideo    ResultType = "video"
	ResultProject  ResultType = "project"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	VideoID   string     `json:"videoId,omitempty"`
	ProjectID string     `json:"projectId"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexDocument(doc DocumentRecord) error
	IndexVideo(v VideoRecord) error
	IndexProject(p ProjectRecord) error
	DeleteDocument(id string) error
	DeleteVideo(id string) error
	DeleteProject(id string) error
}

// DocumentRecord is the data we index for a document. Content is the current
// head content; older revisions are not indexed.
type DocumentRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Content    string `json:"content"`
	VideoID    string `json:"videoId"`
	VideoTitle string `json:"videoTitle"`
	ProjectID  string `json:"projectId"`
	Version    int    `json:"version"`
}

// VideoRecord is the data we index for a video.
type VideoRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	ProjectID string `json:"projectId"`
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

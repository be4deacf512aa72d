package main

// Post represents a subreddit submission with its comments attached.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	CreatedUTC  float64   `json:"created_utc"`
	CreatedDate string    `json:"created_date"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	Selftext    string    `json:"selftext"`
	URL         string    `json:"url"`
	Permalink   string    `json:"permalink"`
	IsSelf      bool      `json:"is_self"`
	Comments    []Comment `json:"comments"`
}

// Comment represents a single comment on a post. Comments whose body was
// removed by Reddit never make it into this struct.
type Comment struct {
	ID          string  `json:"id"`
	Author      string  `json:"author"`
	Body        string  `json:"body"`
	Score       int     `json:"score"`
	CreatedUTC  float64 `json:"created_utc"`
	CreatedDate string  `json:"created_date"`
	ParentID    string  `json:"parent_id"`
	IsSubmitter bool    `json:"is_submitter"`
}

// Problem is one extracted complaint. The shape is whatever the model
// returned; only best-effort reads are performed on it.
type Problem = map[string]any

// Analysis is the final report produced by the summarization pass. Like
// Problem, its shape is controlled by the model, not validated locally.
type Analysis = map[string]any

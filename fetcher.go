package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel values Reddit substitutes for deleted content.
const (
	deletedSentinel = "[deleted]"
	removedSentinel = "[removed]"
)

const listingPageSize = 100

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// RedditClient fetches posts and comments from a single subreddit using the
// OAuth2 client-credentials flow.
type RedditClient struct {
	client    *http.Client
	creds     *Credentials
	subreddit string
	token     string

	// AuthURL and APIURL are overridable for tests.
	AuthURL string
	APIURL  string
}

// NewRedditClient creates a client for the given subreddit.
func NewRedditClient(creds *Credentials, subreddit string) *RedditClient {
	return &RedditClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		creds:     creds,
		subreddit: subreddit,
		AuthURL:   "https://www.reddit.com/api/v1/access_token",
		APIURL:    "https://oauth.reddit.com",
	}
}

// listingEnvelope is the generic wrapper Reddit puts around every listing.
type listingEnvelope struct {
	Data struct {
		After    string         `json:"after"`
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Selftext    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	IsSelf      bool    `json:"is_self"`
}

type commentData struct {
	ID          string          `json:"id"`
	Author      string          `json:"author"`
	Body        string          `json:"body"`
	Score       int             `json:"score"`
	CreatedUTC  float64         `json:"created_utc"`
	ParentID    string          `json:"parent_id"`
	IsSubmitter bool            `json:"is_submitter"`
	Replies     json.RawMessage `json:"replies"`
}

// authenticate obtains an application-only access token.
func (rc *RedditClient) authenticate() error {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequest(http.MethodPost, rc.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building auth request: %w", err)
	}
	req.SetBasicAuth(rc.creds.RedditClientID, rc.creds.RedditClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", rc.creds.RedditUserAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: rc.AuthURL}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding access token response: %w", err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("empty access token in response")
	}

	rc.token = body.AccessToken
	return nil
}

// apiGet performs an authenticated GET and decodes the JSON response into v.
// The access token is fetched lazily on first use.
func (rc *RedditClient) apiGet(path string, query url.Values, v any) error {
	if rc.token == "" {
		if err := rc.authenticate(); err != nil {
			return err
		}
	}

	fullURL := rc.APIURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+rc.token)
	req.Header.Set("User-Agent", rc.creds.RedditUserAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: fullURL}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response from %s: %w", fullURL, err)
	}
	return nil
}

// FetchPosts returns posts from the subreddit's "new" listing created within
// the last lookbackDays days. Pagination stops at the first post older than
// the cutoff, which assumes the listing is strictly reverse-chronological; a
// non-monotonic listing would terminate the scan early and miss posts.
// A limit of 0 means unlimited.
func (rc *RedditClient) FetchPosts(lookbackDays, limit int) ([]Post, error) {
	cutoff := float64(time.Now().AddDate(0, 0, -lookbackDays).Unix())
	posts := []Post{}

	log.Printf("Fetching posts from the last %d days...", lookbackDays)

	after := ""
	for {
		query := url.Values{"limit": {strconv.Itoa(listingPageSize)}}
		if after != "" {
			query.Set("after", after)
		}

		var listing listingEnvelope
		if err := rc.apiGet("/r/"+rc.subreddit+"/new", query, &listing); err != nil {
			return nil, err
		}

		for _, child := range listing.Data.Children {
			var data postData
			if err := json.Unmarshal(child.Data, &data); err != nil {
				return nil, fmt.Errorf("decoding post: %w", err)
			}

			if data.CreatedUTC < cutoff {
				log.Printf("Fetched %d posts", len(posts))
				return posts, nil
			}
			if limit > 0 && len(posts) >= limit {
				log.Printf("Fetched %d posts", len(posts))
				return posts, nil
			}

			posts = append(posts, toPost(data))
		}

		after = listing.Data.After
		if after == "" || len(listing.Data.Children) == 0 {
			break
		}
		if limit > 0 && len(posts) >= limit {
			break
		}
	}

	log.Printf("Fetched %d posts", len(posts))
	return posts, nil
}

// FetchComments retrieves up to maxPerPost comments for each post and attaches
// them in place. "Load more" placeholder nodes are skipped, as are comments
// whose body was deleted or removed.
func (rc *RedditClient) FetchComments(posts []Post, maxPerPost int) ([]Post, error) {
	log.Printf("Fetching comments for %d posts...", len(posts))

	for i := range posts {
		query := url.Values{"limit": {strconv.Itoa(maxPerPost)}}

		var thread []listingEnvelope
		if err := rc.apiGet("/comments/"+posts[i].ID, query, &thread); err != nil {
			return nil, err
		}

		comments := []Comment{}
		if len(thread) > 1 {
			rc.flattenComments(thread[1].Data.Children, &comments, maxPerPost)
		}
		posts[i].Comments = comments

		log.Printf("[%d/%d] %d comments for %q", i+1, len(posts), len(comments), posts[i].Title)
	}

	total := 0
	for _, post := range posts {
		total += len(post.Comments)
	}
	log.Printf("Fetched %d comments total", total)

	return posts, nil
}

// flattenComments walks a comment tree depth-first, collecting up to max
// comments into out.
func (rc *RedditClient) flattenComments(children []listingChild, out *[]Comment, max int) {
	for _, child := range children {
		if len(*out) >= max {
			return
		}
		if child.Kind != "t1" {
			continue
		}

		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			continue
		}

		if data.Body != deletedSentinel && data.Body != removedSentinel && data.Body != "" {
			*out = append(*out, Comment{
				ID:          data.ID,
				Author:      orDeleted(data.Author),
				Body:        data.Body,
				Score:       data.Score,
				CreatedUTC:  data.CreatedUTC,
				CreatedDate: isoDate(data.CreatedUTC),
				ParentID:    data.ParentID,
				IsSubmitter: data.IsSubmitter,
			})
		}

		// Replies is an empty string when there are none, otherwise a
		// nested listing.
		if len(data.Replies) > 0 && data.Replies[0] == '{' {
			var replies listingEnvelope
			if err := json.Unmarshal(data.Replies, &replies); err == nil {
				rc.flattenComments(replies.Data.Children, out, max)
			}
		}
	}
}

// FetchAllContent fetches posts and their comments in one call.
func (rc *RedditClient) FetchAllContent(lookbackDays, postLimit, maxCommentsPerPost int) ([]Post, error) {
	posts, err := rc.FetchPosts(lookbackDays, postLimit)
	if err != nil {
		return nil, err
	}
	if len(posts) > 0 {
		posts, err = rc.FetchComments(posts, maxCommentsPerPost)
		if err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func toPost(data postData) Post {
	return Post{
		ID:          data.ID,
		Title:       data.Title,
		Author:      orDeleted(data.Author),
		CreatedUTC:  data.CreatedUTC,
		CreatedDate: isoDate(data.CreatedUTC),
		Score:       data.Score,
		NumComments: data.NumComments,
		Selftext:    data.Selftext,
		URL:         data.URL,
		Permalink:   "https://reddit.com" + data.Permalink,
		IsSelf:      data.IsSelf,
		Comments:    []Comment{},
	}
}

func orDeleted(author string) string {
	if author == "" {
		return deletedSentinel
	}
	return author
}

func isoDate(createdUTC float64) string {
	return time.Unix(int64(createdUTC), 0).UTC().Format(time.RFC3339)
}

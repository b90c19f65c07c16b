package types

import (
	"time"
)

// Platform identifiers as they appear in stored records.
const (
	PlatformG1    = "Portal G1"
	PlatformFolha = "Folha de São Paulo"
	PlatformExame = "Exame"
)

// Article type classification values.
const (
	TypeArticle = "Article"
	TypeVideo   = "Video"
)

// Record kinds, used to bind a storage backend to one collection.
const (
	KindNews     = "news"
	KindComments = "comments"
)

// Key is the duplicate-detection key for durable storage. Date is the
// RFC 3339 rendering of the record date, or empty when the date is
// unknown — two undated records for the same URL compare equal, so
// matching degrades to URL-only in that case.
type Key struct {
	URL  string
	Date string
}

// Record is the common contract between the crawl pipeline and the
// storage port.
type Record interface {
	// Key returns the (url, date) duplicate-detection key.
	Key() Key

	// Kind returns the collection this record belongs to.
	Kind() string

	// StampEntry sets the persistence timestamp. Called by the storage
	// backend at insert time, never by adapters.
	StampEntry(t time.Time)
}

// ArticleRecord is the canonical normalized unit produced by every news
// adapter. Optional fields are pointers; a nil pointer means the source
// page did not carry the field, which is a normal outcome rather than
// an error.
type ArticleRecord struct {
	Title    *string    `bson:"title"    json:"title"`
	Abstract *string    `bson:"abstract" json:"abstract"`
	Date     *time.Time `bson:"date"     json:"date"`
	Section  *string    `bson:"section"  json:"section"`
	Region   *string    `bson:"region"   json:"region"`
	URL      string     `bson:"url"      json:"url"`
	Platform string     `bson:"platform" json:"platform"`
	Tags     *string    `bson:"tags"     json:"tags"`
	Type     string     `bson:"type"     json:"type"`
	Body     *string    `bson:"body"     json:"body"`
	IDData   *IDData    `bson:"id_data"  json:"id_data"`
	HTML     []byte     `bson:"html"     json:"html"`
	EntryDT  *time.Time `bson:"entry_dt" json:"entry_dt"`
}

// IDData carries the platform-native identifiers needed to locate an
// article's comment thread or its source API object. Which fields are
// populated depends on the platform: Folha fills the four comment-engine
// attributes, Exame fills APIID, G1 needs none (its comment engine is
// keyed by article URL).
type IDData struct {
	ServiceName  string `bson:"service_name,omitempty"  json:"service_name,omitempty"`
	CategoryName string `bson:"category_name,omitempty" json:"category_name,omitempty"`
	ArticleID    string `bson:"article_id,omitempty"    json:"article_id,omitempty"`
	DataType     string `bson:"data_type,omitempty"     json:"data_type,omitempty"`
	APIID        int64  `bson:"api_id,omitempty"        json:"api_id,omitempty"`
}

// Complete reports whether the Folha comment-engine attributes are all
// present. Partial attribute sets cannot resolve a thread id.
func (d *IDData) Complete() bool {
	return d != nil &&
		d.ServiceName != "" && d.CategoryName != "" &&
		d.ArticleID != "" && d.DataType != ""
}

func (a *ArticleRecord) Key() Key {
	k := Key{URL: a.URL}
	if a.Date != nil {
		k.Date = a.Date.UTC().Format(time.RFC3339Nano)
	}
	return k
}

func (a *ArticleRecord) Kind() string { return KindNews }

func (a *ArticleRecord) StampEntry(t time.Time) { a.EntryDT = &t }

// CommentRecord is one reader comment scraped from a comments engine.
// The pipeline streams these; they are not retained past storage handoff.
type CommentRecord struct {
	Author    *string    `bson:"author"     json:"author"`
	Date      *time.Time `bson:"date"       json:"date"`
	Upvote    *int       `bson:"upvote"     json:"upvote"`
	Comment   *string    `bson:"comment"    json:"comment"`
	CommentID *string    `bson:"comment_id" json:"comment_id"`
	Platform  string     `bson:"platform"   json:"platform"`
	NewsData  NewsRef    `bson:"news_data"  json:"news_data"`
	EntryDT   *time.Time `bson:"entry_dt"   json:"entry_dt"`
}

// NewsRef is a weak back-reference from a comment to its article, kept
// only for downstream joinability.
type NewsRef struct {
	Title  *string `bson:"title"            json:"title"`
	Region *string `bson:"region"           json:"region"`
	URL    string  `bson:"url"              json:"url"`
	NewsID string  `bson:"news_id,omitempty" json:"news_id,omitempty"`
	APIID  int64   `bson:"api_id,omitempty"  json:"api_id,omitempty"`
	APIURL string  `bson:"api_url,omitempty" json:"api_url,omitempty"`
}

func (c *CommentRecord) Key() Key {
	k := Key{URL: c.NewsData.URL}
	if c.CommentID != nil {
		// Comments from one article share a URL; the native comment id
		// disambiguates them in the duplicate key.
		k.URL += "#" + *c.CommentID
	}
	if c.Date != nil {
		k.Date = c.Date.UTC().Format(time.RFC3339Nano)
	}
	return k
}

func (c *CommentRecord) Kind() string { return KindComments }

func (c *CommentRecord) StampEntry(t time.Time) { c.EntryDT = &t }

// Ptr returns a pointer to v. Convenience for building records with
// optional fields in tests and adapters.
func Ptr[T any](v T) *T { return &v }

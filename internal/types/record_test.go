package types

import (
	"testing"
	"time"
)

// --- Key Tests ---

func TestArticleKey(t *testing.T) {
	date := time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC)
	a := &ArticleRecord{URL: "https://g1.globo.com/sp/noticia/x.ghtml", Date: &date}

	key := a.Key()
	if key.URL != a.URL {
		t.Errorf("expected key URL %q, got %q", a.URL, key.URL)
	}
	if key.Date != "2023-01-15T10:30:00Z" {
		t.Errorf("unexpected key date: %q", key.Date)
	}
}

func TestArticleKeyNilDate(t *testing.T) {
	a := &ArticleRecord{URL: "https://g1.globo.com/noticia/x.ghtml"}
	b := &ArticleRecord{URL: "https://g1.globo.com/noticia/x.ghtml"}

	if a.Key() != b.Key() {
		t.Error("two undated records for the same URL should share a key")
	}
	if a.Key().Date != "" {
		t.Errorf("expected empty key date, got %q", a.Key().Date)
	}
}

func TestArticleKeyDistinguishesDates(t *testing.T) {
	d1 := time.Date(2023, 1, 15, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2023, 1, 16, 10, 0, 0, 0, time.UTC)
	a := &ArticleRecord{URL: "https://g1.globo.com/x", Date: &d1}
	b := &ArticleRecord{URL: "https://g1.globo.com/x", Date: &d2}

	if a.Key() == b.Key() {
		t.Error("same URL with different dates should produce distinct keys")
	}
}

func TestCommentKeyUsesCommentID(t *testing.T) {
	c1 := &CommentRecord{
		CommentID: Ptr("100"),
		NewsData:  NewsRef{URL: "https://g1.globo.com/x"},
	}
	c2 := &CommentRecord{
		CommentID: Ptr("200"),
		NewsData:  NewsRef{URL: "https://g1.globo.com/x"},
	}

	if c1.Key() == c2.Key() {
		t.Error("comments on the same article should not collide")
	}
	if c1.Key().URL != "https://g1.globo.com/x#100" {
		t.Errorf("unexpected comment key URL: %q", c1.Key().URL)
	}
}

func TestCommentKeyNilID(t *testing.T) {
	c := &CommentRecord{NewsData: NewsRef{URL: "https://g1.globo.com/x"}}
	if c.Key().URL != "https://g1.globo.com/x" {
		t.Errorf("unexpected key URL: %q", c.Key().URL)
	}
}

// --- Kind / Stamp Tests ---

func TestKinds(t *testing.T) {
	if (&ArticleRecord{}).Kind() != KindNews {
		t.Error("article should belong to the news kind")
	}
	if (&CommentRecord{}).Kind() != KindComments {
		t.Error("comment should belong to the comments kind")
	}
}

func TestStampEntry(t *testing.T) {
	now := time.Now()
	a := &ArticleRecord{}
	a.StampEntry(now)
	if a.EntryDT == nil || !a.EntryDT.Equal(now) {
		t.Error("entry_dt not stamped on article")
	}

	c := &CommentRecord{}
	c.StampEntry(now)
	if c.EntryDT == nil || !c.EntryDT.Equal(now) {
		t.Error("entry_dt not stamped on comment")
	}
}

// --- IDData Tests ---

func TestIDDataComplete(t *testing.T) {
	full := &IDData{
		ServiceName:  "folhacom",
		CategoryName: "poder",
		ArticleID:    "2023-123456",
		DataType:     "news",
	}
	if !full.Complete() {
		t.Error("full attribute set should be complete")
	}

	var nilData *IDData
	if nilData.Complete() {
		t.Error("nil id_data should not be complete")
	}

	partial := &IDData{ServiceName: "folhacom", ArticleID: "x"}
	if partial.Complete() {
		t.Error("partial attribute set should not be complete")
	}
}

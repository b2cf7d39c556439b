package feed

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(2, testLogger())
	q.Push(domain.Event{ID: "e1"})
	q.Push(domain.Event{ID: "e2"})
	q.Push(domain.Event{ID: "e3"})

	assert.Equal(t, 1, q.Dropped())

	first := <-q.Events()
	second := <-q.Events()
	assert.Equal(t, "e2", first.ID, "oldest event evicted to admit the newest")
	assert.Equal(t, "e3", second.ID)
}

func TestQueuePreservesOrder(t *testing.T) {
	q := NewQueue(10, testLogger())
	for i := 0; i < 5; i++ {
		q.Push(domain.Event{ID: fmt.Sprintf("e%d", i)})
	}
	q.Close()

	var got []string
	for ev := range q.Events() {
		got = append(got, ev.ID)
	}
	assert.Equal(t, []string{"e0", "e1", "e2", "e3", "e4"}, got)
	assert.Zero(t, q.Dropped())
}

func TestParseTweetCamelCase(t *testing.T) {
	doc := gjson.Parse(`{
		"id": "1901",
		"text": "Fed announces surprise rate cut",
		"createdAt": "2026-02-11T14:30:00Z",
		"author": {
			"name": "Reuters",
			"userName": "Reuters",
			"profilePicture": "https://img.example/reuters.png",
			"isBlueVerified": true
		},
		"likeCount": 1200,
		"retweetCount": 400,
		"replyCount": 88
	}`)

	event, ok := parseTweet(doc, doc)
	require.True(t, ok)
	assert.Equal(t, "1901", event.ID)
	assert.Equal(t, "Fed announces surprise rate cut", event.Text)
	assert.Equal(t, "Reuters", event.Author.Name)
	assert.Equal(t, "Reuters", event.Author.Handle)
	assert.Equal(t, "https://img.example/reuters.png", event.Author.Avatar)
	assert.True(t, event.Author.Verified)
	assert.Equal(t, 1200, event.Engagement.Likes)
	assert.Equal(t, 400, event.Engagement.Shares)
	assert.Equal(t, 88, event.Engagement.Replies)
	assert.Equal(t, 2026, event.Timestamp.Year())
}

func TestParseTweetSnakeCase(t *testing.T) {
	doc := gjson.Parse(`{
		"id_str": "77",
		"text": "Bitcoin crosses 100k",
		"user": {
			"display_name": "CoinDesk",
			"screen_name": "coindesk",
			"verified": true,
			"profile_image_url_https": "https://img.example/cd.png"
		},
		"favorite_count": 10,
		"retweet_count": 5,
		"reply_count": 2
	}`)

	event, ok := parseTweet(doc, doc)
	require.True(t, ok)
	assert.Equal(t, "77", event.ID)
	assert.Equal(t, "CoinDesk", event.Author.Name)
	assert.Equal(t, "coindesk", event.Author.Handle)
	assert.True(t, event.Author.Verified)
	assert.Equal(t, 10, event.Engagement.Likes)
}

func TestParseTweetWithoutTextRejected(t *testing.T) {
	doc := gjson.Parse(`{"id": "1", "author": {"name": "Reuters"}}`)
	_, ok := parseTweet(doc, doc)
	assert.False(t, ok)
}

func TestParseTweetMissingFieldsDefaulted(t *testing.T) {
	doc := gjson.Parse(`{"text": "headline only"}`)
	event, ok := parseTweet(doc, doc)
	require.True(t, ok)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "Unknown", event.Author.Name)
	assert.Equal(t, "unknown", event.Author.Handle)
	assert.False(t, event.Author.Verified)
	assert.False(t, event.Timestamp.IsZero())
}

func TestParseTweetEnvelopeTimestampFallback(t *testing.T) {
	envelope := gjson.Parse(`{"type": "tweet", "timestamp": 1770000000000}`)
	doc := gjson.Parse(`{"text": "no created at"}`)

	event, ok := parseTweet(doc, envelope)
	require.True(t, ok)
	assert.Equal(t, int64(1770000000), event.Timestamp.Unix())
}

func TestHandleFrameDropsMalformed(t *testing.T) {
	src := NewTwitterSource(TwitterConfig{APIKey: "k"}, testLogger())

	var got []domain.Event
	emit := func(ev domain.Event) { got = append(got, ev) }

	src.handleFrame([]byte("not json"), emit)
	src.handleFrame([]byte(`{"type": "ping", "timestamp": 123}`), emit)
	src.handleFrame([]byte(`{"type": "connected"}`), emit)
	src.handleFrame([]byte(`{"type": "tweet"}`), emit)
	assert.Empty(t, got)

	src.handleFrame([]byte(`{"type": "tweet", "text": "hello", "author": {"name": "Reuters"}}`), emit)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)

	src.handleFrame([]byte(`{"type": "tweet", "tweets": [{"text": "a"}, {"id": "no-text"}, {"text": "b"}]}`), emit)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[1].Text)
	assert.Equal(t, "b", got[2].Text)
}

func TestHandleFrameAccountAllowList(t *testing.T) {
	src := NewTwitterSource(TwitterConfig{
		APIKey:   "k",
		Accounts: []string{"@Reuters", " coindesk "},
	}, testLogger())

	var got []domain.Event
	emit := func(ev domain.Event) { got = append(got, ev) }

	src.handleFrame([]byte(`{"type": "tweet", "text": "watched", "author": {"userName": "reuters"}}`), emit)
	src.handleFrame([]byte(`{"type": "tweet", "text": "unwatched", "author": {"userName": "randomguy"}}`), emit)
	src.handleFrame([]byte(`{"type": "tweet", "text": "also watched", "author": {"screen_name": "CoinDesk"}}`), emit)

	require.Len(t, got, 2)
	assert.Equal(t, "watched", got[0].Text)
	assert.Equal(t, "also watched", got[1].Text)
}

func TestMockSourceGenerate(t *testing.T) {
	src := NewMockSource(0, testLogger())
	event := src.generate()

	assert.NotEmpty(t, event.ID)
	assert.NotEmpty(t, event.Text)
	assert.NotEmpty(t, event.Author.Handle)
	assert.True(t, event.Author.Verified)
	assert.GreaterOrEqual(t, event.Engagement.Likes, 100)
}

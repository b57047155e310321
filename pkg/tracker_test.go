package pkg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponse struct {
	body string
	err  error
}

type stubRetriever map[string]stubResponse

func (s stubRetriever) Fetch(_ context.Context, url string) (string, error) {
	res, ok := s[url]
	if !ok {
		return "", &NetworkError{URL: url, StatusCode: 404, Err: errors.New("404 Not Found")}
	}
	return res.body, res.err
}

var testFeeds = FeedMetadata{CasesURL: "cases", TotalURL: "total"}

const (
	casesFeed = `var covid_world_timeline = [
{"date":"2020-03-01","list":[{"id":"IT","name":"Italy","confirmed":1000,"deaths":20,"recovered":50}]},
{"date":"2020-03-02","list":[{"id":"IT","name":"Italy","confirmed":1500,"deaths":30,"recovered":80},{"id":"US","name":"United States","confirmed":300,"deaths":5,"recovered":10}]}
];`
	totalFeed = `var covid_total_timeline = [{"confirmed":1200,"deaths":25,"recovered":60},{"confirmed":1800,"deaths":35,"recovered":90}];`
)

func TestBuildPageProps(t *testing.T) {
	tracker := NewTracker(testFeeds, stubRetriever{
		"cases": {body: casesFeed},
		"total": {body: totalFeed},
	}, nil, nil)

	props, err := tracker.BuildPageProps(context.Background())
	require.NoError(t, err)

	require.Len(t, props.Data, 2)
	assert.Equal(t, "IT", props.Data[0].ID())
	assert.Equal(t, float64(1500), props.Data[0]["value"])
	assert.Equal(t, "US", props.Data[1].ID())
	assert.Equal(t, float64(300), props.Data[1]["value"])
	assert.Equal(t, Datum{"confirmed": 1800.0, "deaths": 35.0, "recovered": 90.0}, props.TotalData)
}

func TestBuildPagePropsEmptyCasesFeed(t *testing.T) {
	tracker := NewTracker(testFeeds, stubRetriever{
		"cases": {body: "var x = []"},
		"total": {body: totalFeed},
	}, SnippetExtractor{}, nil)

	props, err := tracker.BuildPageProps(context.Background())

	var malformed *MalformedFeedError
	require.True(t, errors.As(err, &malformed), "got %v", err)
	assert.ErrorIs(t, err, ErrEmptyFeed)
	assert.NotNil(t, props.Data)
	assert.Empty(t, props.Data)
	assert.Equal(t, float64(1800), props.TotalData.Confirmed())
}

func TestBuildPagePropsFailuresAreIndependent(t *testing.T) {
	tracker := NewTracker(testFeeds, stubRetriever{
		"cases": {body: casesFeed},
	}, nil, nil)

	props, err := tracker.BuildPageProps(context.Background())

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Equal(t, "total", netErr.URL)
	assert.Len(t, props.Data, 2)
	assert.Equal(t, Datum{}, props.TotalData)
}

func TestBuildPagePropsBothFeedsFail(t *testing.T) {
	tracker := NewTracker(testFeeds, stubRetriever{
		"cases": {body: `var x = [{"date":"2020-03-02"}]`},
		"total": {body: "var y = nothing"},
	}, nil, nil)

	props, err := tracker.BuildPageProps(context.Background())

	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
	assert.ErrorIs(t, err, ErrEmptyFeed)
	assert.Empty(t, props.Data)
	assert.Empty(t, props.TotalData)
}

func TestFetchTotal(t *testing.T) {
	tracker := NewTracker(testFeeds, stubRetriever{
		"total": {body: `var y = [{"confirmed":100,"deaths":10,"recovered":50}]`},
	}, nil, nil)

	total, err := tracker.FetchTotal(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Datum{"confirmed": 100.0, "deaths": 10.0, "recovered": 50.0}, total)
}

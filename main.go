package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/liavyona/covid-tracker/pkg"
)

const defaultFeedTimeout = 30 * time.Second

type snapshotArchive interface {
	SaveSnapshot(ctx context.Context, logger *zerolog.Logger, date, previousDate string, props pkg.PageProps) (bool, error)
}

var tracker *pkg.Tracker
var archive snapshotArchive

type pageResponse struct {
	pkg.PageProps
	Panel pkg.Panel `json:"panel"`
}

type arangoConfig struct {
	Endpoint    string
	Username    string
	Password    string
	Certificate string
	Database    string
}

func (c arangoConfig) enabled() bool {
	return c.Endpoint != "" && c.Username != "" && c.Password != "" && c.Certificate != "" && c.Database != ""
}

type config struct {
	Feeds       pkg.FeedMetadata
	FeedTimeout time.Duration
	Arango      arangoConfig
}

func loadConfig(getenv func(string) string) config {
	cfg := config{
		Feeds:       pkg.DefaultFeedMetadata(),
		FeedTimeout: defaultFeedTimeout,
		Arango: arangoConfig{
			Endpoint:    getenv("ARANGO_ENDPOINT"),
			Username:    getenv("ARANGO_USER_NAME"),
			Password:    getenv("ARANGO_PASS"),
			Certificate: getenv("ARANGO_CERTIFICATE"),
			Database:    getenv("ARANGO_DATABASE"),
		},
	}
	if url := getenv("COVID_CASES_URL"); url != "" {
		cfg.Feeds.CasesURL = url
	}
	if url := getenv("COVID_TOTALS_URL"); url != "" {
		cfg.Feeds.TotalURL = url
	}
	if raw := getenv("FEED_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			log.Warn().Str("timeout", raw).Err(err).Msg("Invalid FEED_TIMEOUT, using default")
		} else {
			cfg.FeedTimeout = parsed
		}
	}
	return cfg
}

func init() {
	cfg := loadConfig(os.Getenv)
	tracker = pkg.NewTracker(cfg.Feeds, pkg.NewHTTPFeedRetriever(cfg.FeedTimeout), pkg.SnippetExtractor{}, &log.Logger)

	if !cfg.Arango.enabled() {
		log.Info().Msg("Snapshot archive disabled, ARANGO_* variables are not set")
		return
	}
	dbWrapper, err := pkg.ConnectToArango(
		cfg.Arango.Endpoint,
		cfg.Arango.Username,
		cfg.Arango.Password,
		cfg.Arango.Certificate,
		cfg.Arango.Database,
	)
	if err != nil {
		log.Error().Str("endpoint", cfg.Arango.Endpoint).Err(err).Msg("Error while connecting to arango db")
	} else {
		archive = dbWrapper
	}
}

// archiveRun stores at most one snapshot per UTC day; a failure is logged
// and never reaches the response.
func archiveRun(ctx context.Context, props pkg.PageProps) {
	if archive == nil {
		return
	}
	currentTime := time.Now().UTC()
	currentRun := currentTime.Format("2006-01-02")
	prevRun := currentTime.AddDate(0, 0, -1).Format("2006-01-02")
	saved, err := archive.SaveSnapshot(ctx, &log.Logger, currentRun, prevRun, props)
	if err != nil {
		log.Err(err).Str("run", currentRun).Msg("Failed to archive run")
		return
	}
	if saved {
		log.Info().Str("run", currentRun).Int("countries", len(props.Data)).Msg("Archived run")
	}
}

func handlePageRequest(
	ctx context.Context,
	request events.APIGatewayProxyRequest,
) (events.APIGatewayProxyResponse, error) {
	props, err := tracker.BuildPageProps(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Serving page with default data")
	} else {
		archiveRun(ctx, props)
	}

	var selected pkg.Datum
	if country := request.QueryStringParameters["country"]; country != "" {
		datum, ok := pkg.FindCountry(props.Data, country)
		if !ok {
			log.Debug().Str("country", country).Msg("Unknown country, showing global view")
		}
		selected = datum
	}

	body, err := json.Marshal(pageResponse{
		PageProps: props,
		Panel:     pkg.BuildPanel(selected, props.TotalData),
	})
	if err != nil {
		log.Err(err).Msg("Failed to encode page response")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       http.StatusText(http.StatusInternalServerError),
		}, nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func main() {
	lambda.Start(handlePageRequest)
}

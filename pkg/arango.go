package pkg

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arangodb/go-driver"
	"github.com/arangodb/go-driver/http"
	"github.com/fatih/structs"
	"github.com/rs/zerolog"

	"golang.org/x/net/context"
)

const (
	runsCollection      = "Runs"
	snapshotsCollection = "CountrySnapshots"
	edgesCollection     = "SnapshotEdges"
	snapshotsGraph      = "snapshots-graph"
)

type ArangoDB struct {
	db driver.Database
}

type SnapshotEdge struct {
	Key        string `json:"_key"`
	From       string `json:"_from"`
	To         string `json:"_to"`
	Collection string `json:"collection"`
}

// RunNode is the per-day vertex every snapshot hangs off.
type RunNode struct {
	Key        string  `structs:"_key"`
	CreatedAt  int64   `structs:"createdAt"`
	Collection string  `structs:"collection"`
	Confirmed  float64 `structs:"confirmed"`
	Recovered  float64 `structs:"recovered"`
	Deaths     float64 `structs:"deaths"`
}

// CountrySnapshot is the archived form of one normalized country datum.
type CountrySnapshot struct {
	Key        string  `structs:"_key"`
	Date       string  `structs:"date"`
	Collection string  `structs:"collection"`
	CountryID  string  `structs:"id"`
	Name       string  `structs:"name"`
	Confirmed  float64 `structs:"confirmed"`
	Recovered  float64 `structs:"recovered"`
	Deaths     float64 `structs:"deaths"`
}

func ConnectToArango(endpoint, username, password, arangoCertificate, database string) (
	*ArangoDB,
	error,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	caCertificate, err := base64.StdEncoding.DecodeString(arangoCertificate)
	if err != nil {
		return nil, fmt.Errorf("failed decoding certificate: %w", err)
	}

	certpool := x509.NewCertPool()
	if success := certpool.AppendCertsFromPEM(caCertificate); !success {
		return nil, errors.New("invalid certificate")
	}
	tlsConfig := &tls.Config{RootCAs: certpool}

	conn, err := http.NewConnection(http.ConnectionConfig{
		Endpoints: []string{endpoint},
		TLSConfig: tlsConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating HTTP connection: %w", err)
	}

	c, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: driver.BasicAuthentication(username, password),
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating driver connection: %w", err)
	}

	db, err := c.Database(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("failed getting database %q: %w", database, err)
	}

	return &ArangoDB{db}, nil
}

func runID(date string) string {
	if strings.HasPrefix(date, runsCollection+"/") {
		return date
	}
	return fmt.Sprintf("%s/%s", runsCollection, date)
}

func (graph *ArangoDB) UpsertRunNode(
	ctx context.Context,
	date string,
	total Datum,
) error {
	node := structs.Map(RunNode{
		Key:        date,
		CreatedAt:  time.Now().Unix(),
		Collection: runsCollection,
		Confirmed:  total.Confirmed(),
		Recovered:  total.Recovered(),
		Deaths:     total.Deaths(),
	})
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"UPSERT { _key: @key } INSERT @run REPLACE @run IN Runs",
		map[string]interface{}{
			"key": date,
			"run": node,
		},
	)
	if err != nil {
		return err
	}

	return cursor.Close()
}

func (graph *ArangoDB) UpsertEdgeBetweenRuns(
	ctx context.Context,
	previousRun,
	currentRun string,
) error {
	edge := SnapshotEdge{
		Key:        fmt.Sprintf("%s-%s", previousRun, currentRun),
		From:       runID(previousRun),
		To:         runID(currentRun),
		Collection: edgesCollection,
	}
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"UPSERT { _key: @key } INSERT @edge REPLACE @edge IN SnapshotEdges",
		map[string]interface{}{
			"key":  edge.Key,
			"edge": edge,
		},
	)
	if err != nil {
		return err
	}

	return cursor.Close()
}

// RunExists reports whether the run of date was fully archived.
func (graph *ArangoDB) RunExists(ctx context.Context, date string) (bool, error) {
	runs, err := graph.db.Collection(ctx, runsCollection)
	if err != nil {
		return false, fmt.Errorf("failed getting %q collection: %w", runsCollection, err)
	}
	return runs.DocumentExists(ctx, date)
}

// GetCountrySnapshots returns the snapshots archived by the run of date,
// keyed by lower-cased country id.
func (graph *ArangoDB) GetCountrySnapshots(
	ctx context.Context,
	date string,
) (map[string]Datum, error) {
	cursor, err := graph.db.Query(
		driver.WithQueryCount(ctx),
		"FOR v IN 1..1 OUTBOUND @runDate GRAPH @graph FILTER v.collection == @collection RETURN v",
		map[string]interface{}{
			"runDate":    runID(date),
			"graph":      snapshotsGraph,
			"collection": snapshotsCollection,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed querying database: %w", err)
	}

	defer cursor.Close() // nolint: errcheck

	var nodes []Datum
	for {
		var node Datum
		_, err := cursor.ReadDocument(ctx, &node)
		if driver.IsNoMoreDocuments(err) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed reading document: %w", err)
		}
		nodes = append(nodes, node)
	}

	return GroupByKey(nodes, "id")
}

// SaveSnapshot archives the run of date at most once and reports whether it
// wrote anything. Country documents and edges have deterministic keys and
// replace their duplicates; the run node goes in last, so a run that failed
// halfway is redone by the next call instead of being skipped.
func (graph *ArangoDB) SaveSnapshot(
	ctx context.Context,
	logger *zerolog.Logger,
	date,
	previousDate string,
	props PageProps,
) (bool, error) {
	archived, err := graph.RunExists(ctx, date)
	if err != nil {
		logger.Err(err).Str("run", date).Msg("Failed to check run node")
		return false, fmt.Errorf("failed checking run %q: %w", date, err)
	}
	if archived {
		logger.Debug().Str("run", date).Msg("Run already archived")
		return false, nil
	}

	previous, err := graph.GetCountrySnapshots(ctx, previousDate)
	if err != nil {
		logger.Warn().Err(err).Str("previous_run", previousDate).Msg("Previous run is unavailable")
	}

	docs := buildSnapshotDocuments(date, props.Data, previous)
	if err := graph.importReplacing(ctx, logger, snapshotsCollection, docs, len(docs)); err != nil {
		return false, fmt.Errorf("failed saving snapshot documents: %w", err)
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		keys = append(keys, doc["_key"].(string))
	}
	edges := buildRunEdges(date, keys)
	if err := graph.importReplacing(ctx, logger, edgesCollection, edges, len(edges)); err != nil {
		return false, fmt.Errorf("failed saving snapshot edges: %w", err)
	}

	if len(previous) > 0 {
		if err := graph.UpsertEdgeBetweenRuns(ctx, previousDate, date); err != nil {
			logger.Err(err).Str("run", date).Str("previous_run", previousDate).
				Msg("Failed to edge between current run and previous run")
			return false, fmt.Errorf("failed linking runs: %w", err)
		}
	}

	if err := graph.UpsertRunNode(ctx, date, props.TotalData); err != nil {
		logger.Err(err).Str("run", date).Msg("Failed to create new run node")
		return false, fmt.Errorf("failed creating run node: %w", err)
	}
	return true, nil
}

func (graph *ArangoDB) importReplacing(
	ctx context.Context,
	logger *zerolog.Logger,
	collection string,
	documents interface{},
	expected int,
) error {
	col, err := graph.db.Collection(ctx, collection)
	if err != nil {
		logger.Err(err).Str("collection", collection).Msg("An error occurred while trying to use collection")
		return err
	}

	stats, err := col.ImportDocuments(driver.WithQueryCount(ctx), documents, &driver.ImportDocumentOptions{
		OnDuplicate: driver.ImportOnDuplicateReplace,
	})
	if err != nil {
		logger.Err(err).Str("collection", collection).Msg("An error occurred while trying to save documents")
		return err
	}

	logger.Info().Str("collection", collection).Int("expected", expected).Int64("created", stats.Created).
		Int64("updated", stats.Updated).Int64("internal_errors", stats.Errors).Msg("Saved documents successfully")
	return nil
}

// buildRunEdges links the run of date to the country snapshots with the
// given keys. Each edge reuses its snapshot's key.
func buildRunEdges(date string, keys []string) []SnapshotEdge {
	edges := make([]SnapshotEdge, 0, len(keys))
	for _, key := range keys {
		edges = append(edges, SnapshotEdge{
			Key:        key,
			From:       runID(date),
			To:         fmt.Sprintf("%s/%s", snapshotsCollection, key),
			Collection: edgesCollection,
		})
	}
	return edges
}

// buildSnapshotDocuments skips countries without an id since the id is part
// of the document key.
func buildSnapshotDocuments(date string, countries []Datum, previous map[string]Datum) []map[string]interface{} {
	docs := make([]map[string]interface{}, 0, len(countries))
	for _, country := range countries {
		id := normalizeID(country.ID())
		if id == "" {
			continue
		}
		node := structs.Map(CountrySnapshot{
			Key:        fmt.Sprintf("%s-%s", date, id),
			Date:       date,
			Collection: snapshotsCollection,
			CountryID:  id,
			Name:       country.Name(),
			Confirmed:  country.Confirmed(),
			Recovered:  country.Recovered(),
			Deaths:     country.Deaths(),
		})
		if prev, ok := previous[id]; ok {
			node["diff"] = country.Confirmed() - prev.Confirmed()
			node["prevSnapshotId"] = prev["_id"]
		}
		docs = append(docs, node)
	}
	return docs
}

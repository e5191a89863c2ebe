// Package bq writes uploaded survey batches into BigQuery tables.
package bq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/taigrr/iwls/types"
)

var ErrMissingEnv = errors.New("environment variable must be set")

// Table names a BigQuery table inside the project.
type Table struct {
	Dataset string
	Name    string
}

// Config is read from the environment of the function.
type Config struct {
	ProjectID    string
	Connectivity Table
	Pings        Table
	Networks     Table
	Loads        Table
	Suggestions  Table
}

// ConfigFromEnv reads GOOGLE_CLOUD_PROJECT and the BIGQUERY_DATASET_* /
// BIGQUERY_TABLE_* pairs. Loads and suggestions are optional; batches are
// accepted without them when their table is not configured.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	var (
		cfg     Config
		missing []string
	)
	required := func(key string) string {
		v := getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.ProjectID = required("GOOGLE_CLOUD_PROJECT")
	cfg.Networks = Table{required("BIGQUERY_DATASET_SSIDS"), required("BIGQUERY_TABLE_SSIDS")}
	cfg.Pings = Table{required("BIGQUERY_DATASET_PINGS"), required("BIGQUERY_TABLE_PINGS")}
	cfg.Connectivity = Table{required("BIGQUERY_DATASET_CONNECTIVITY"), required("BIGQUERY_TABLE_CONNECTIVITY")}
	cfg.Loads = Table{getenv("BIGQUERY_DATASET_LOADS"), getenv("BIGQUERY_TABLE_LOADS")}
	cfg.Suggestions = Table{getenv("BIGQUERY_DATASET_SUGGESTIONS"), getenv("BIGQUERY_TABLE_SUGGESTIONS")}

	if len(missing) > 0 {
		return cfg, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}
	return cfg, nil
}

func (t Table) configured() bool { return t.Dataset != "" && t.Name != "" }

// Inserter runs one INSERT job per non-empty collection of a batch.
type Inserter struct {
	cfg Config
}

func NewInserter(cfg Config) *Inserter {
	return &Inserter{cfg: cfg}
}

func (in *Inserter) Insert(ctx context.Context, data types.MetricSet, loop string) error {
	client, err := bigquery.NewClient(ctx, in.cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("bigquery.NewClient: %w", err)
	}
	defer client.Close()

	for _, q := range in.queries(data, loop) {
		if err := run(ctx, client, q); err != nil {
			return err
		}
	}
	return nil
}

// statement is an INSERT with positional parameters.
type statement struct {
	kind   string
	sql    string
	params []bigquery.QueryParameter
}

func (in *Inserter) queries(data types.MetricSet, loop string) []statement {
	var out []statement
	add := func(kind string, t Table, columns []string, rows [][]interface{}) {
		if len(rows) == 0 || !t.configured() {
			return
		}
		out = append(out, insertStatement(kind, in.cfg.ProjectID, t, columns, rows))
	}

	var rows [][]interface{}
	for _, c := range data.Connectivity {
		rows = append(rows, []interface{}{loop, c.Timestamp, c.Connected})
	}
	add("connectivity", in.cfg.Connectivity, []string{"loop", "timestamp", "connected"}, rows)

	rows = nil
	for _, p := range data.Pings {
		rows = append(rows, []interface{}{loop, p.Timestamp, p.RTT})
	}
	add("ping", in.cfg.Pings, []string{"loop", "timestamp", "rtt"}, rows)

	rows = nil
	for _, n := range data.Networks {
		rows = append(rows, []interface{}{n.SSID, n.BSSID, n.Channel, n.Quality, n.Current, loop, n.Timestamp})
	}
	add("ssids", in.cfg.Networks, []string{"ssids", "bssid", "channel", "quality", "current", "loop", "timestamp"}, rows)

	rows = nil
	for _, l := range data.Loads {
		rows = append(rows, []interface{}{loop, l.Timestamp, l.Channel, l.Load})
	}
	add("loads", in.cfg.Loads, []string{"loop", "timestamp", "channel", "load"}, rows)

	rows = nil
	for _, s := range data.Suggestions {
		channels := make([]int64, len(s.Channels))
		for i, c := range s.Channels {
			channels[i] = int64(c)
		}
		rows = append(rows, []interface{}{loop, s.Timestamp, s.Kind, s.SSID, channels})
	}
	add("suggestions", in.cfg.Suggestions, []string{"loop", "timestamp", "kind", "ssid", "channels"}, rows)

	return out
}

func insertStatement(kind, project string, t Table, columns []string, rows [][]interface{}) statement {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	values := make([]string, len(rows))
	params := make([]bigquery.QueryParameter, 0, len(rows)*len(columns))
	for i, row := range rows {
		values[i] = placeholder
		for _, v := range row {
			params = append(params, bigquery.QueryParameter{Value: v})
		}
	}
	sql := fmt.Sprintf("INSERT INTO %s.%s.%s(%s) VALUES%s;",
		project, t.Dataset, t.Name, strings.Join(columns, ","), strings.Join(values, ","))
	return statement{kind: kind, sql: sql, params: params}
}

func run(ctx context.Context, client *bigquery.Client, st statement) error {
	query := client.Query(st.sql)
	query.Parameters = st.params
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("creating %s query job: %w", st.kind, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("running %s query: %w", st.kind, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s query: %w", st.kind, err)
	}
	return nil
}

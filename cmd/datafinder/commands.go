// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/poiesic/datafinder"
	"github.com/poiesic/datafinder/cdc"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/pipeline"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/urfave/cli/v2"
)

var errQueryRequired = errors.New("query is required")

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", errQueryRequired
	}
	return query, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func syncCommand(c *cli.Context) error {
	ctx := context.Background()
	var opts []datafinder.Option
	if c.Bool("progress") {
		opts = append(opts, datafinder.WithProgress(os.Stderr))
	}
	finder, cfg, err := openFinder(ctx, c, opts...)
	if err != nil {
		return err
	}
	defer finder.Close()

	if cfg.CatalogPath == "" {
		return errors.New("catalog path is required: use --catalog or DATAFINDER_CATALOG")
	}
	result, err := finder.SyncFile(ctx, cfg.CatalogPath, cdc.SyncOptions{
		ApplyDeletes: !c.Bool("no-deletes"),
		DryRun:       c.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	if c.Bool("dry-run") {
		fmt.Fprintln(w, "Dry run, nothing applied.")
	}
	fmt.Fprintf(w, "Inserts: %d  Updates: %d  Deletes: %d  Unchanged: %d  (%s)\n",
		result.Inserts, result.Updates, result.Deletes, result.Unchanged, result.Duration.Round(time.Millisecond))
	for _, change := range result.Changes {
		fmt.Fprintf(w, "  %-7s %d %s\n", change.Type, change.Id, change.Name)
	}
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	if !result.Success {
		return fmt.Errorf("sync finished with %d errors", len(result.Errors))
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c, datafinder.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer finder.Close()

	result, err := finder.Reindex(ctx, c.Int("batch-size"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Reindexed %d tables (%s)\n", result.Updates, result.Duration.Round(time.Millisecond))
	for _, msg := range result.Errors {
		fmt.Fprintf(c.App.Writer, "  error: %s\n", msg)
	}
	if !result.Success {
		return fmt.Errorf("reindex finished with %d errors", len(result.Errors))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	results, err := finder.Search(ctx, query, &retrieval.SearchOptions{
		MaxResults: c.Int("max"),
		Domain:     c.String("domain"),
	})
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Found %d tables\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%d: %s (%d) [%s] %.3f  name=%.3f desc=%.3f kw=%.3f bm25=%.3f\n",
			i+1, r.Table.Label(), r.Table.Id, r.Table.Domain(), r.Score,
			r.Breakdown.Name, r.Breakdown.Description, r.Breakdown.Keywords, r.Breakdown.Overlap)
	}
	return nil
}

func suggestCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	suggestions, err := finder.Suggest(ctx, query)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, suggestions.Message)
	for _, d := range suggestions.Domains {
		fmt.Fprintf(w, "%s (%.3f)\n", d.Domain, d.AverageScore)
		for _, t := range d.Tables {
			fmt.Fprintf(w, "  %d %s %.3f\n", t.Id, t.Name, t.Score)
		}
	}
	return nil
}

// findOutput is what find prints: the request id needed by feedback and
// the answer in the requested mode.
type findOutput struct {
	RequestId string   `json:"request_id"`
	Result    any      `json:"result"`
	Failed    []string `json:"failed_stages,omitempty"`
}

func findCommand(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	req := &pipeline.Request{
		Query:        query,
		Mode:         pipeline.OutputSingle,
		VariableName: c.String("variable"),
		VariableType: c.String("variable-type"),
	}
	if c.Bool("ranking") {
		req.Mode = pipeline.OutputRanking
	}
	st, err := finder.Find(ctx, req)
	if err != nil {
		return err
	}

	out := findOutput{RequestId: st.RequestId}
	for _, e := range st.Errors {
		out.Failed = append(out.Failed, e.Error())
	}
	if st.RankingOutput != nil {
		out.Result = st.RankingOutput
	} else {
		out.Result = st.Single
	}
	return printJSON(c.App.Writer, out)
}

func parseOutcome(s string) (core.Outcome, error) {
	outcome := core.Outcome(strings.ToUpper(strings.TrimSpace(s)))
	if err := core.ValidateOutcome(outcome); err != nil {
		return "", err
	}
	return outcome, nil
}

func feedbackCommand(c *cli.Context) error {
	outcome, err := parseOutcome(c.String("outcome"))
	if err != nil {
		return err
	}
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	record, err := finder.Resolve(ctx, c.String("request-id"), outcome,
		c.String("justification"), core.ID(c.Uint64("actual-table")))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Recorded %s for table %d (category %s)\n",
		record.Outcome, record.TableId, record.JustificationCategory)
	return nil
}

func insightsCommand(c *cli.Context) error {
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()
	return printJSON(c.App.Writer, finder.Insights())
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	stats, err := finder.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

func clearCommand(c *cli.Context) error {
	ctx := context.Background()
	finder, _, err := openFinder(ctx, c)
	if err != nil {
		return err
	}
	defer finder.Close()

	n, err := finder.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Removed %d tables\n", n)
	return nil
}

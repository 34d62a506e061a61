// cmd/catalog-query/main.go

// Package main provides a shell client for the product catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chezona/chorom/internal/common/catalogindex"
	"github.com/chezona/chorom/internal/common/config"
	"github.com/chezona/chorom/internal/common/database"
	"github.com/chezona/chorom/internal/common/logger"
	si "github.com/chezona/chorom/internal/workers/catalog/search-items"
)

type options struct {
	backend    string
	url        string
	apiKey     string
	esAddress  string
	index      string
	location   string
	limit      int
	maxResults int
	outputJSON bool
	timeout    time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "catalog-query <query>",
		Short: "Search the product catalog",
		Long: `Search the product catalog the same way the assistant does.

Examples:
  catalog-query iphone                       # top results, reply format
  catalog-query sugar --location Kampala     # filter by vendor location
  catalog-query shoes --json                 # raw hits with totals
  catalog-query status 42                    # status of an index task
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			index, err := openIndex(opts)
			if err != nil {
				return err
			}
			return runSearch(ctx, cmd.OutOrStdout(), index, args[0], opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backend, "backend", config.BackendMeilisearch, "Search backend: meilisearch or elasticsearch")
	flags.StringVar(&opts.url, "url", envOr("MEILI_URL", "http://localhost:7700"), "Meilisearch URL")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("MEILI_API_KEY"), "Meilisearch API key")
	flags.StringVar(&opts.esAddress, "es", envOr("ELASTICSEARCH_URL", "http://localhost:9200"), "Elasticsearch address")
	flags.StringVar(&opts.index, "index", "products", "Index name")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	cmd.Flags().StringVar(&opts.location, "location", "", "Only show items from this vendor location")
	cmd.Flags().IntVar(&opts.limit, "limit", 5, "Number of hits to request")
	cmd.Flags().IntVar(&opts.maxResults, "max", 3, "Number of hits shown in the reply")
	cmd.Flags().BoolVar(&opts.outputJSON, "json", false, "Output hits as JSON")

	cmd.AddCommand(statusCmd(opts))

	return cmd
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <taskId>",
		Short: "Show the status of an index task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := openIndex(opts)
			if err != nil {
				return err
			}
			return runStatus(cmd.Context(), cmd.OutOrStdout(), index, args[0], opts.timeout)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openIndex(opts *options) (catalogindex.Index, error) {
	switch opts.backend {
	case config.BackendMeilisearch:
		return catalogindex.NewMeilisearchIndex(opts.url, opts.apiKey, opts.index, opts.timeout), nil
	case config.BackendElasticsearch:
		es, err := database.NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{opts.esAddress}})
		if err != nil {
			return nil, err
		}
		return catalogindex.NewElasticsearchIndex(es.Client, opts.index), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", opts.backend)
	}
}

type jsonResult struct {
	Query              string      `json:"query"`
	Filter             string      `json:"filter,omitempty"`
	EstimatedTotalHits int64       `json:"estimatedTotalHits"`
	ProcessingTimeMs   int64       `json:"processingTimeMs"`
	Hits               interface{} `json:"hits"`
}

func runSearch(ctx context.Context, out io.Writer, index catalogindex.Index, query string, opts *options) error {
	handler := si.NewHandler(&si.Config{
		Timeout:     opts.timeout,
		SearchLimit: opts.limit,
		MaxResults:  opts.maxResults,
	}, index, logger.NewNoOpLogger())

	input := &si.Input{Query: query}
	if opts.location != "" {
		filter := catalogindex.EqualityFilter("vendor", opts.location)
		input.Filter = &filter
		input.Location = &opts.location
	}

	result := handler.Execute(ctx, input)
	if result.Response == si.SearchFailedMessage {
		return fmt.Errorf("search failed against %s index %q", opts.backend, opts.index)
	}

	if !opts.outputJSON {
		_, err := fmt.Fprintln(out, result.Response)
		return err
	}

	res := jsonResult{
		Query:              query,
		EstimatedTotalHits: result.EstimatedTotalHits,
		ProcessingTimeMs:   result.ProcessingTimeMs,
		Hits:               result.Hits,
	}
	if input.Filter != nil {
		res.Filter = *input.Filter
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runStatus(ctx context.Context, out io.Writer, index catalogindex.Index, taskID string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := index.TaskStatus(ctx, taskID)
	if err != nil {
		return fmt.Errorf("task %s: %w", taskID, err)
	}
	_, err = fmt.Fprintf(out, "task %s: %s\n", taskID, status)
	return err
}

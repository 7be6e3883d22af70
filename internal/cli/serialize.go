package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/config"
	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/graph"
	graphio "github.com/matzehuels/graphwriter/pkg/io"
	"github.com/matzehuels/graphwriter/pkg/scalar"
	"github.com/matzehuels/graphwriter/pkg/serialize"
	"github.com/matzehuels/graphwriter/pkg/sink"
)

// serializeOpts holds the command-line flags of the serialize command.
type serializeOpts struct {
	typeName string // restrict to one type
	id       string // serialize a single node
	output   string // output file, stdout when empty
	noCache  bool

	view     string
	format   string
	depth    int
	reduce   bool
	noIndent bool
	budget   time.Duration

	page     int
	pageSize int
	sortKey  string
	order    string
	search   string
	exact    bool

	// searchSet and sortSet record whether the flags were given, so that an
	// explicit empty value is echoed in the envelope.
	searchSet bool
	sortSet   bool
}

// serializeCommand creates the serialize command.
func (c *CLI) serializeCommand() *cobra.Command {
	var opts serializeOpts

	cmd := &cobra.Command{
		Use:   "serialize [graph.json]",
		Short: "Serialize nodes of a graph document",
		Long: `Serialize nodes of a graph document.

Without --id, every node (or every node of --type) is written as a collection,
optionally filtered with --search and paged with --page and --page-size. With
--id a single node is written.

Rendered documents are cached locally, keyed by the document contents and the
flags, unless --no-cache is given.`,
		Args: graphFileArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSerialize(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	// Selection flags
	cmd.Flags().StringVarP(&opts.typeName, "type", "t", "", "only nodes of this type")
	cmd.Flags().StringVar(&opts.id, "id", "", "serialize the node with this ID")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "nodes per page (0: no paging)")
	cmd.Flags().StringVar(&opts.sortKey, "sort", "", "sort by this property (default: name)")
	cmd.Flags().StringVar(&opts.order, "order", graph.SortAsc, "sort order: asc, desc")
	cmd.Flags().StringVar(&opts.search, "search", "", "case-insensitive substring match on name")
	cmd.Flags().BoolVar(&opts.exact, "exact", false, "match --search exactly")

	// Writer flags, defaulting to the configuration file
	cmd.Flags().StringVar(&opts.view, "view", "", "property view (default from config: public)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: json, bson, extjson")
	cmd.Flags().IntVarP(&opts.depth, "depth", "d", 0, "maximum nesting depth (default from config: 3)")
	cmd.Flags().BoolVar(&opts.reduce, "reduce-redundancy", false, "omit back references to enclosing entities")
	cmd.Flags().BoolVar(&opts.noIndent, "no-indent", false, "write compact JSON")
	cmd.Flags().DurationVar(&opts.budget, "budget", 0, "time budget for the result loop (default from config: 5m)")

	return cmd
}

// runSerialize loads the document, builds the result and streams it.
func (c *CLI) runSerialize(cmd *cobra.Command, input string, opts serializeOpts) error {
	ctx := cmd.Context()
	status := cmd.ErrOrStderr()

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	wopts, format, err := writerOptions(cmd, cfg, opts)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", input)
	}
	prog := newProgress(c.Logger)
	store, err := graphio.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}
	prog.done(fmt.Sprintf("Imported %d nodes", store.Len()))

	wopts.KeyResolver = store.Schema()
	wopts.Logger = c.Logger

	opts.searchSet = cmd.Flags().Changed("search")
	opts.sortSet = cmd.Flags().Changed("sort")
	result, err := buildResult(store, opts, wopts.MaxDepth)
	if err != nil {
		return err
	}

	docCache, err := newCache(opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer docCache.Close()
	key := cache.NewDefaultKeyer().DocumentKey(cache.DocumentKeyOpts{
		GraphHash:        cache.Hash(data),
		Path:             result.Subject,
		Query:            selectionQuery(opts),
		View:             wopts.View,
		Format:           format,
		MaxDepth:         wopts.MaxDepth,
		ReduceRedundancy: wopts.ReduceRedundancy,
		Indent:           wopts.Indent,
	})

	out, closeOut, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	defer closeOut()

	if cached, ok, err := docCache.Get(ctx, key); err != nil {
		c.Logger.Debug("cache read failed", "error", err)
	} else if ok {
		if _, err := out.Write(cached); err != nil {
			return errors.Wrap(errors.ErrCodeSinkIO, err, "write output")
		}
		c.reportDone(status, opts.output, result.Subject, serialize.Report{}, true)
		return nil
	}

	report, err := stream(ctx, serialize.New(wopts), format, out, result, docCache, key, time.Duration(cfg.Cache.TTL))
	if err != nil {
		return err
	}
	logWarnings(c.Logger, report)
	c.reportDone(status, opts.output, result.Subject, report, false)
	return nil
}

// stream writes result to out and stores the rendered bytes in docCache when
// the result is complete.
func stream(ctx context.Context, w *serialize.Writer, format string, out io.Writer,
	result *serialize.Result, docCache cache.Cache, key string, ttl time.Duration) (serialize.Report, error) {
	var buf bytes.Buffer
	sw, err := w.NewSink(format, io.MultiWriter(out, &buf))
	if err != nil {
		return serialize.Report{}, err
	}
	report, err := w.Stream(ctx, sw, result)
	if err != nil {
		return report, err
	}
	if !report.Truncated {
		if err := docCache.Set(ctx, key, buf.Bytes(), ttl); err != nil {
			loggerFromContext(ctx).Debug("cache write failed", "error", err)
		}
	}
	return report, nil
}

// writerOptions merges the configuration file with the flags that were set.
func writerOptions(cmd *cobra.Command, cfg *config.Config, opts serializeOpts) (serialize.Options, string, error) {
	wopts := cfg.Writer.Options()
	format := cfg.Writer.Format
	flags := cmd.Flags()

	if flags.Changed("view") {
		if err := errors.ValidateViewName(opts.view); err != nil {
			return wopts, "", err
		}
		wopts.View = opts.view
	}
	if flags.Changed("format") {
		if err := errors.ValidateFormat(opts.format, sink.Formats); err != nil {
			return wopts, "", err
		}
		format = opts.format
	}
	if flags.Changed("depth") {
		if opts.depth < 0 {
			return wopts, "", errors.New(errors.ErrCodeInvalidInput, "--depth must be >= 0, got %d", opts.depth)
		}
		wopts.MaxDepth = opts.depth
	}
	if flags.Changed("budget") {
		if opts.budget <= 0 {
			return wopts, "", errors.New(errors.ErrCodeInvalidInput, "--budget must be positive")
		}
		wopts.Budget = opts.budget
	}
	if flags.Changed("reduce-redundancy") {
		wopts.ReduceRedundancy = opts.reduce
	}
	if opts.noIndent {
		wopts.Indent = false
	}
	return wopts, format, nil
}

// buildResult selects the nodes named by the flags.
func buildResult(store *graph.Store, opts serializeOpts, depth int) (*serialize.Result, error) {
	if opts.typeName != "" {
		if err := errors.ValidateTypeName(opts.typeName); err != nil {
			return nil, err
		}
	}

	if opts.id != "" {
		node, ok := store.Get(opts.id)
		if !ok || (opts.typeName != "" && node.TypeName != opts.typeName) {
			return nil, errors.New(errors.ErrCodeNotFound, "node %q not found", opts.id)
		}
		result := serialize.NewSingle(node)
		result.Subject = node.TypeName + "/" + node.ID
		result.OutputNestingDepth = serialize.Ptr(depth)
		return result, nil
	}

	switch opts.order {
	case graph.SortAsc, graph.SortDesc:
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "--order must be %q or %q, got %q",
			graph.SortAsc, graph.SortDesc, opts.order)
	}
	start := time.Now()
	page, err := store.Query(graph.Query{
		Type:      opts.typeName,
		Search:    opts.search,
		Exact:     opts.exact,
		SortKey:   opts.sortKey,
		SortOrder: opts.order,
		Page:      opts.page,
		PageSize:  opts.pageSize,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "query")
	}

	result := serialize.FromPage(page)
	result.QueryTime = scalar.FormatSeconds(time.Since(start))
	if opts.searchSet {
		result.SearchString = serialize.Ptr(opts.search)
	}
	if opts.sortSet {
		result.SortKey = serialize.Ptr(opts.sortKey)
	}
	result.SortOrder = serialize.Ptr(opts.order)
	result.OutputNestingDepth = serialize.Ptr(depth)
	result.Subject = opts.typeName
	if result.Subject == "" {
		result.Subject = "*"
	}
	return result, nil
}

// selectionQuery renders the selection flags in canonical form for cache keys.
func selectionQuery(opts serializeOpts) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(opts.page))
	q.Set("page_size", strconv.Itoa(opts.pageSize))
	q.Set("sort", opts.sortKey)
	q.Set("order", opts.order)
	q.Set("search", opts.search)
	q.Set("exact", strconv.FormatBool(opts.exact))
	return q.Encode()
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	return f, func() { f.Close() }, nil
}

func (c *CLI) reportDone(w io.Writer, output, subject string, report serialize.Report, cached bool) {
	if report.Truncated {
		printWarning(w, "Result truncated after %d entries", report.Emitted)
	}
	if output == "" {
		return
	}
	printSuccess(w, "Serialized %s", subject)
	printFile(w, output)
	if cached {
		printDetail(w, iconCached)
		return
	}
	printStats(w, report.Emitted, len(report.Warnings), report.Truncated)
}

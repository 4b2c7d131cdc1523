// Package index implements the indexer orchestrator: a bounded walker ->
// parse-worker-pool -> integrator pipeline whose assembled graph callers
// persist through internal/pipeline, grounded on
// core/filewalker.go's parallel traversal and core/fileprocessor.go's
// worker-pool sizing, repurposed from transform-application to graph
// extraction.
package index

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/codegraph/codegraph/internal/assemble"
	"github.com/codegraph/codegraph/internal/cache"
	"github.com/codegraph/codegraph/internal/detect"
	"github.com/codegraph/codegraph/internal/errkind"
	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/ignore"
	"github.com/codegraph/codegraph/internal/langprovider"
)

// ProgressSink receives best-effort progress notifications during a run.
// Grounded on mcp/progress.go's token-scoped progress context; here it is
// a plain callback interface since the orchestrator itself is transport-
// agnostic (the toolhost and CLI each adapt it to their own reporting).
type ProgressSink interface {
	OnFileStart(path string)
	OnFileDone(path string, nodeCount int, err error)
	OnComplete(summary Summary)
}

// NoopSink discards all progress events.
type NoopSink struct{}

func (NoopSink) OnFileStart(string)                 {}
func (NoopSink) OnFileDone(string, int, error)      {}
func (NoopSink) OnComplete(Summary)                 {}

// Summary reports the outcome of one indexing run.
type Summary struct {
	FilesWalked   int
	FilesParsed   int
	FilesFailed   int
	FilesSkipped  int
	FilesCached   int
	NodesWritten  int
	EdgesWritten  int
	Duration      time.Duration
	FailedPaths   []string
}

// Options configures a run.
type Options struct {
	Root          string
	ProjectPath   string // logical project key stored alongside every record
	Registry      *langprovider.Registry
	Ignore        *ignore.Handler
	Cache         *cache.Cache
	Workers       int
	ParseTimeout  time.Duration // per-file soft timeout; zero disables it
	Progress      ProgressSink
}

// walkItem is one file discovered by the walker.
type walkItem struct {
	path string
	rel  string
}

// parsedItem is one file's outcome, ready for integration.
type parsedItem struct {
	path   string
	result *graph.ParseResult
	err    error
	cached bool
}

// Run executes one full indexing pass over opts.Root and returns the
// assembled graph plus a run summary. Cancellation via ctx stops the walk
// and drains in-flight workers cooperatively.
func Run(ctx context.Context, opts Options) (*assemble.Assembled, Summary, error) {
	start := time.Now()
	sink := opts.Progress
	if sink == nil {
		sink = NoopSink{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	walkCh := make(chan walkItem, 256)
	parsedCh := make(chan parsedItem, 256)

	summary := Summary{}

	walkCtx, cancelWalk := context.WithCancel(ctx)
	defer cancelWalk()

	go func() {
		defer close(walkCh)
		walkDir(walkCtx, opts.Root, opts.Ignore, walkCh, &summary)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runWorkers(walkCtx, workers, opts, walkCh, parsedCh, sink)
	}()
	go func() {
		<-done
		close(parsedCh)
	}()

	asm := assemble.New()
	for item := range parsedCh {
		if item.err != nil {
			summary.FilesFailed++
			summary.FailedPaths = append(summary.FailedPaths, item.path)
			sink.OnFileDone(item.path, 0, item.err)
			continue
		}
		if item.cached {
			summary.FilesCached++
		}
		asm.Integrate(item.result)
		summary.FilesParsed++
		sink.OnFileDone(item.path, len(item.result.Nodes), nil)
	}

	assembled := asm.Finish()
	summary.NodesWritten = len(assembled.Nodes)
	summary.EdgesWritten = len(assembled.Edges)
	summary.Duration = time.Since(start)
	sink.OnComplete(summary)

	if ctx.Err() != nil {
		return assembled, summary, errkind.Wrap(errkind.Canceled, "index run canceled", ctx.Err())
	}
	return assembled, summary, nil
}

func walkDir(ctx context.Context, root string, ig *ignore.Handler, out chan<- walkItem, summary *Summary) {
	_ = filepathWalk(ctx, root, root, ig, out, summary)
}

// filepathWalk is a small recursive walker (root/filewalker.go's shape,
// generalized to push items onto a channel instead of a WalkResult chan
// keyed by Language). Directories named in the ignore handler are pruned
// without descending, not filtered post-hoc.
func filepathWalk(ctx context.Context, root, dir string, ig *ignore.Handler, out chan<- walkItem, summary *Summary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := osReadDir(dir)
	if err != nil {
		return nil
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		rel, _ := filepath.Rel(root, full)

		if ig != nil && ig.ShouldSkip(rel) {
			summary.FilesSkipped++
			continue
		}

		if entry.IsDir() {
			if err := filepathWalk(ctx, root, full, ig, out, summary); err != nil {
				return err
			}
			continue
		}

		summary.FilesWalked++
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- walkItem{path: full, rel: rel}:
		}
	}
	return nil
}

func runWorkers(ctx context.Context, n int, opts Options, in <-chan walkItem, out chan<- parsedItem, sink ProgressSink) {
	sem := make(chan struct{}, n)
	doneCh := make(chan struct{}, n)
	count := 0

	for item := range in {
		select {
		case <-ctx.Done():
			continue
		default:
		}
		sem <- struct{}{}
		count++
		go func(it walkItem) {
			defer func() { <-sem; doneCh <- struct{}{} }()
			sink.OnFileStart(it.path)
			out <- parseOne(ctx, opts, it)
		}(item)
	}
	for i := 0; i < count; i++ {
		<-doneCh
	}
}

func parseOne(ctx context.Context, opts Options, item walkItem) parsedItem {
	content, err := osReadFile(item.path)
	if err != nil {
		return parsedItem{path: item.path, err: errkind.Wrap(errkind.FileReadError, "failed to read file", err)}
	}

	hash := contentHash(content)
	if opts.Cache != nil {
		if entry, ok, _ := opts.Cache.Get(ctx, hash); ok {
			if result, decErr := decodeParseResult(entry.Value); decErr == nil {
				return parsedItem{path: item.path, result: result, cached: true}
			}
		}
	}

	sample := content
	if len(sample) > 512 {
		sample = sample[:512]
	}
	parser, ok := opts.Registry.Dispatch(item.path, sample)
	if !ok {
		return parsedItem{path: item.path, err: errkind.New(errkind.ParseError, "no parser for file")}
	}

	resultCh := make(chan *graph.ParseResult, 1)
	go func() { resultCh <- parser.Parse(item.path, content) }()

	var result *graph.ParseResult
	if opts.ParseTimeout > 0 {
		select {
		case result = <-resultCh:
		case <-time.After(opts.ParseTimeout):
			return parsedItem{path: item.path, err: errkind.New(errkind.ParseError, "parse timed out")}
		}
	} else {
		result = <-resultCh
	}

	if !result.Success {
		return parsedItem{path: item.path, err: errkind.New(errkind.ParseError, result.Error)}
	}

	detect.Run(result)

	if opts.Cache != nil {
		if encoded, encErr := encodeParseResult(result); encErr == nil {
			opts.Cache.Put(ctx, &cache.Entry{Hash: hash, Path: item.path, Value: encoded})
		}
	}

	return parsedItem{path: item.path, result: result}
}

// contentHash uses xxhash rather than a cryptographic hash: cache keys only
// need to detect change, not resist forgery.
func contentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

func osReadDir(dir string) ([]os.DirEntry, error) { return os.ReadDir(dir) }
func osReadFile(path string) ([]byte, error)      { return os.ReadFile(path) }

// encodeParseResult/decodeParseResult give the disk cache tier a portable
// representation of a ParseResult (plain JSON, matching the teacher's own
// preference for datatypes.JSON blob columns over gob-encoded Go values).
func encodeParseResult(pr *graph.ParseResult) ([]byte, error) {
	return json.Marshal(pr)
}

func decodeParseResult(data []byte) (*graph.ParseResult, error) {
	var pr graph.ParseResult
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

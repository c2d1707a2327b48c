package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"

	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/service"
)

func main() {
	_ = godotenv.Load()
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUsage)
	}

	switch os.Args[1] {
	case "ingest":
		ingestCmd(os.Args[2:])
	case "query", "ask":
		queryCmd(os.Args[2:])
	case "embed":
		embedCmd(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
		os.Exit(exitUsage)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ragpipe <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ingest  Load, chunk, embed and store documents")
	fmt.Fprintln(os.Stderr, "  query   Answer a question from stored chunks (alias: ask)")
	fmt.Fprintln(os.Stderr, "  embed   Print the embedding of a text")
	fmt.Fprintln(os.Stderr, "  stats   Show the number of stored chunks")
	fmt.Fprintln(os.Stderr, "  serve   Run the MCP server")
	fmt.Fprintln(os.Stderr, "Exit status: 1 failure, 2 usage or configuration, 3 content, 4 dependency unavailable")
}

const (
	exitFailure     = 1
	exitUsage       = 2
	exitContent     = 3
	exitUnavailable = 4
)

// exitCode maps a pipeline error class to the process exit status.
func exitCode(err error) int {
	switch pipeline.Classify(err) {
	case pipeline.ClassConfiguration:
		return exitUsage
	case pipeline.ClassContent:
		return exitContent
	case pipeline.ClassUnavailable:
		return exitUnavailable
	}
	return exitFailure
}

func fatal(op string, err error) {
	fatalWith(exitCode(err), op, err)
}

func fatalWith(code int, op string, err error) {
	log.Printf("%s: %v", op, err)
	os.Exit(code)
}

// commonFlags are shared by all commands and override the config file.
type commonFlags struct {
	config     *string
	db         *string
	store      *string
	collection *string
	embedder   *string
	model      *string
	generator  *string
	genModel   *string
	verbose    *bool
}

func registerCommon(flags *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:     flags.String("config", "", "config yaml (optional, defaults to "+service.DefaultConfigPath+" if present)"),
		db:         flags.String("db", "", "store path or DSN"),
		store:      flags.String("store", "", "store driver: sqlite|bolt|memory|postgres"),
		collection: flags.String("collection", "", "collection name"),
		embedder:   flags.String("embedder", "", "embedder: openai|simple|ollama|vertexai"),
		model:      flags.String("model", "", "embedding model"),
		generator:  flags.String("generator", "", "generator: openai|ollama"),
		genModel:   flags.String("gen-model", "", "generation model"),
		verbose:    flags.Bool("v", false, "log pipeline stages"),
	}
}

func (f *commonFlags) load(ctx context.Context) *service.Config {
	cfg, err := readConfig(*f.config)
	if err != nil {
		fatalWith(exitUsage, "load config", err)
	}
	if *f.store != "" && *f.store != cfg.Store.Driver {
		cfg.Store.Driver = *f.store
		cfg.Store.Path, cfg.Store.DSN = "", ""
	}
	if *f.db != "" {
		if cfg.Store.Driver == "postgres" {
			cfg.Store.DSN = *f.db
		} else {
			cfg.Store.Path, cfg.Store.DSN = *f.db, ""
		}
	}
	setIf(&cfg.Store.Collection, *f.collection)
	setIf(&cfg.Embedder.Provider, *f.embedder)
	setIf(&cfg.Embedder.Model, *f.model)
	setIf(&cfg.Generator.Provider, *f.generator)
	setIf(&cfg.Generator.Model, *f.genModel)
	cfg.ApplyDefaults()
	if err := cfg.Expand(ctx); err != nil {
		fatalWith(exitUsage, "config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalWith(exitUsage, "config", err)
	}
	return cfg
}

func (f *commonFlags) service(ctx context.Context, opts ...service.Option) *service.Service {
	cfg := f.load(ctx)
	if *f.verbose {
		opts = append(opts, service.WithLogf(log.Printf))
	}
	svc, err := service.New(ctx, cfg, opts...)
	if err != nil {
		fatal("service init", err)
	}
	return svc
}

func readConfig(path string) (*service.Config, error) {
	if path != "" {
		return service.ReadConfig(path)
	}
	cfg, err := service.ReadConfig(service.DefaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return service.DefaultConfig(), nil
	}
	return cfg, err
}

func setIf(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func ingestCmd(args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	common := registerCommon(flags)
	text := flags.String("text", "", "ingest inline text instead of files")
	source := flags.String("source", "", "source label for --text")
	flags.Parse(args)

	if *text == "" && flags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: ragpipe ingest [options] <path|url>...")
		flags.PrintDefaults()
		os.Exit(exitUsage)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := common.service(ctx)
	defer func() { _ = svc.Close() }()

	if *text != "" {
		res, err := svc.IngestText(ctx, *source, *text)
		if err != nil {
			fatal("ingest", err)
		}
		fmt.Printf("doc=%s chunks=%d\n", res.DocumentID, res.Chunks)
	}
	var firstErr error
	for _, uri := range flags.Args() {
		res, err := svc.Ingest(ctx, uri)
		if err != nil {
			if errors.Is(err, pipeline.ErrCanceled) {
				fatal("ingest", err)
			}
			log.Printf("ingest: %s: %v", uri, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Printf("doc=%s chunks=%d source=%s\n", res.DocumentID, res.Chunks, uri)
	}
	if firstErr != nil {
		os.Exit(exitCode(firstErr))
	}
}

func queryCmd(args []string) {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	common := registerCommon(flags)
	k := flags.Int("k", 0, "number of chunks to retrieve (default from config)")
	prompt := flags.String("prompt", "", "question (or pass as arguments)")
	showChunks := flags.Bool("chunks", false, "print supporting chunks")
	retrieveOnly := flags.Bool("retrieve", false, "print the nearest chunks without generating")
	asJSON := flags.Bool("json", false, "print JSON")
	flags.Parse(args)

	question := *prompt
	if question == "" {
		question = strings.Join(flags.Args(), " ")
	}
	if strings.TrimSpace(question) == "" {
		fmt.Fprintln(os.Stderr, "Usage: ragpipe query [options] <question>")
		flags.PrintDefaults()
		os.Exit(exitUsage)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := common.service(ctx)
	defer func() { _ = svc.Close() }()

	if *retrieveOnly {
		matches, err := svc.Retrieve(ctx, question, *k)
		if err != nil {
			fatal("retrieve", err)
		}
		if *asJSON {
			printJSON(matches)
			return
		}
		for i, m := range matches {
			fmt.Printf("%d. distance=%.4f id=%s source=%s\n%s\n\n", i+1, m.Distance, m.ID, m.Meta["source"], m.Text)
		}
		return
	}

	answer, err := svc.Ask(ctx, question, *k)
	if err != nil {
		fatal("query", err)
	}
	if *asJSON {
		printJSON(answer)
		return
	}
	fmt.Println(answer.Text)
	if *showChunks {
		for i, m := range answer.Chunks {
			fmt.Printf("\n[%d] distance=%.4f id=%s source=%s\n%s\n", i+1, m.Distance, m.ID, m.Meta["source"], m.Text)
		}
	}
}

func embedCmd(args []string) {
	flags := flag.NewFlagSet("embed", flag.ExitOnError)
	common := registerCommon(flags)
	head := flags.Int("head", 5, "number of leading values to print")
	flags.Parse(args)

	text := strings.Join(flags.Args(), " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "Usage: ragpipe embed [options] <text>")
		flags.PrintDefaults()
		os.Exit(exitUsage)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// embedding needs no store
	*common.store = "memory"
	svc := common.service(ctx)
	defer func() { _ = svc.Close() }()

	vec, err := svc.Embed(ctx, text)
	if err != nil {
		fatal("embed", err)
	}
	n := *head
	if n > len(vec) {
		n = len(vec)
	}
	fmt.Printf("dimension=%d head=%v\n", len(vec), vec[:n])
}

func statsCmd(args []string) {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	common := registerCommon(flags)
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := common.service(ctx)
	defer func() { _ = svc.Close() }()

	n, err := svc.Stats(ctx)
	if err != nil {
		fatal("stats", err)
	}
	cfg := svc.Config()
	fmt.Printf("store=%s collection=%s chunks=%d\n", cfg.Store.Driver, cfg.Store.Collection, n)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("json: %v", err)
	}
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}

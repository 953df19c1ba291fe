package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/res-scraper/pkg/classify"
	"github.com/Sriram-PR/res-scraper/pkg/config"
	"github.com/Sriram-PR/res-scraper/pkg/models"
	"github.com/Sriram-PR/res-scraper/pkg/orchestrate"
	"github.com/Sriram-PR/res-scraper/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "categories":
		os.Exit(doCategories(os.Stdout))
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "version":
		fmt.Printf("res-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `res-scraper - Download the media, images and documents linked from a web page

Usage:
  res-scraper <command> [options]

Commands:
  crawl       Download resources from one page (prompts when flags are missing)
  validate    Validate configuration file
  categories  List resource categories and their extensions
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'res-scraper <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. An empty path yields the
// built-in defaults; Validate still has to be called.
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
func loadAndValidateConfig(configFile string, log *logrus.Logger) (*config.AppConfig, error) {
	if configFile != "" {
		log.Infof("Loading configuration from %s", configFile)
	}
	appCfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}

	appWarnings, err := appCfg.Validate()
	for _, w := range appWarnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return appCfg, nil
}

// crawlOptions carries the crawl subcommand's flags
type crawlOptions struct {
	configFile string
	targetURL  string
	types      string
	outputDir  string
	logLevel   string
	report     bool
	render     bool
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	opts := crawlOptions{}
	fs.StringVar(&opts.configFile, "config", "", "Path to YAML config file (optional)")
	fs.StringVar(&opts.targetURL, "url", "", "Page to scan for resources (prompted if empty)")
	fs.StringVar(&opts.types, "types", "", "Comma-separated categories: labels or menu numbers, e.g. 'image,3' (prompted if empty)")
	fs.StringVar(&opts.outputDir, "output", "", "Base directory for category folders (overrides config)")
	fs.StringVar(&opts.logLevel, "loglevel", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.report, "report", false, "Write a YAML crawl report into the output directory")
	fs.BoolVar(&opts.render, "render", false, "Load the page in headless Chrome before extracting references")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: res-scraper crawl [options]

Fetch one page and download the linked resources of the selected categories
into <output>/<Category>/.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  res-scraper crawl -url https://example.com/gallery -types image
  res-scraper crawl -url https://example.com/docs -types 1,3 -output ./downloads
  res-scraper crawl   # interactive
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "Received signal: %v. Stopping downloads...\n", sig)
		cancel()

		select {
		case <-sigChan:
			os.Exit(1)
		case <-time.After(30 * time.Second):
			os.Exit(1)
		}
	}()
	defer signal.Stop(sigChan)

	os.Exit(doCrawl(ctx, opts, os.Stdin, os.Stdout, os.Stderr))
}

// doCrawl is the testable implementation of the crawl subcommand.
// Returns exit code (0 = crawl ran, 1 = bad input or fatal crawl error).
func doCrawl(ctx context.Context, opts crawlOptions, stdin io.Reader, stdout, stderr io.Writer) int {
	log := setupLogger(opts.logLevel, stderr)

	appCfg, err := loadAndValidateConfig(opts.configFile, log)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return 1
	}
	if opts.outputDir != "" {
		appCfg.OutputBaseDir = opts.outputDir
	}
	if opts.report {
		appCfg.EnableReport = true
	}
	if opts.render {
		appCfg.RenderJavaScript = true
	}

	in := bufio.NewReader(stdin)

	var categories models.CategorySet
	if strings.TrimSpace(opts.types) == "" {
		categories = promptCategories(in, stdout)
	} else {
		var invalid []string
		categories, invalid = models.ParseCategorySet(opts.types)
		for _, bad := range invalid {
			log.Warnf("Ignoring unknown resource type '%s'", bad)
		}
	}
	if len(categories) == 0 {
		fmt.Fprintln(stdout, "No resource types selected, exiting.")
		return 1
	}

	targetURL := strings.TrimSpace(opts.targetURL)
	if targetURL == "" {
		targetURL = prompt(in, stdout, "Enter the URL to crawl: ")
	}

	fmt.Fprintf(stdout, "Crawling: %s\n", targetURL)
	fmt.Fprintf(stdout, "Selected resource types: %s\n", strings.Join(categories.Labels(), ", "))

	orch := orchestrate.NewOrchestrator(appCfg, logrus.NewEntry(log))
	stopProgress := startProgress(stdout, orch)
	result, err := orch.Crawl(ctx, models.CrawlRequest{TargetURL: targetURL, Categories: categories})
	stopProgress()
	if err != nil {
		switch {
		case !utils.IsFatal(err):
			fmt.Fprintf(stderr, "Crawl error: %v\n", err)
		case errors.Is(err, utils.ErrInvalidInput):
			fmt.Fprintln(stderr, "Invalid URL: make sure it includes http:// or https://")
		default:
			fmt.Fprintf(stderr, "Request error: %v\n", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "Crawl complete! Downloaded %d of %d resources\n", result.Succeeded, result.Attempted)
	if result.Skipped > 0 {
		fmt.Fprintf(stdout, "Skipped %d references that could not be resolved\n", result.Skipped)
	}
	if appCfg.EnableReport {
		fmt.Fprintf(stdout, "Report: %s\n", orchestrate.ReportPath(appCfg))
	}
	return 0
}

// startProgress shows a spinner with live counters while the crawl runs.
// It only draws on a terminal.
func startProgress(out io.Writer, orch *orchestrate.Orchestrator) (stop func()) {
	f, ok := out.(*os.File)
	if !ok {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(f))
	s.Start()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := orch.Progress()
				s.Lock()
				s.Suffix = fmt.Sprintf(" %s: %d/%d downloaded", p.State, p.Succeeded, p.Queued)
				s.Unlock()
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
		s.Stop()
	}
}

// promptCategories shows the numbered menu and reads the selection.
// Unknown choices are dropped.
func promptCategories(in *bufio.Reader, out io.Writer) models.CategorySet {
	fmt.Fprintln(out, "=== Web Resource Scraper ===")
	fmt.Fprintln(out, "Select the resource types to download:")
	for _, c := range models.AllCategories {
		fmt.Fprintf(out, "%d. %s\n", c.MenuNumber(), c.Label())
	}
	fmt.Fprintln(out, "Enter numbers separated by commas (e.g. 1,2,3)")

	set, _ := models.ParseCategorySet(prompt(in, out, "Resource types: "))
	return set
}

func prompt(in *bufio.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: res-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: workers=%d per_host=%d output=%s page_timeout=%v download_timeout=%v retries=%d\n",
		appCfg.NumWorkers, appCfg.MaxRequestsPerHost, appCfg.OutputBaseDir,
		appCfg.PageTimeout, appCfg.DownloadTimeout, appCfg.MaxRetries)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// doCategories prints the category menu with the extensions each one covers
func doCategories(stdout io.Writer) int {
	for _, c := range models.AllCategories {
		exts := classify.Extensions(c)
		desc := "anything not listed above"
		if len(exts) > 0 {
			desc = strings.Join(exts, ", ")
		}
		fmt.Fprintf(stdout, "%d. %-9s %s\n", c.MenuNumber(), c.Label(), desc)
	}
	return 0
}

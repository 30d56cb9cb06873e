package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asm0dey/java-version-checker-sub002/internal/ingest"
	apiclient "github.com/asm0dey/java-version-checker-sub002/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL string `json:"api_base_url"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "analyze":
		err = commandAnalyze(args)
	case "scan":
		err = commandScan(args)
	case "runs":
		err = commandRuns(args)
	case "report":
		err = commandReport(args)
	case "versions":
		err = commandVersions(args)
	case "config":
		err = commandConfig(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	file := fs.String("file", "", "Release file, property dump, or ZIP archive to analyze")
	name := fs.String("name", "", "Run label (defaults to the file name)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*file) == "" {
		return errors.New("--file is required")
	}
	payload, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read %s: %w", *file, err)
	}
	label := strings.TrimSpace(*name)
	if label == "" {
		label = filepath.Base(*file)
	}

	client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	report, err := client.Analyze(ctx, label, payload)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func commandScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	dir := fs.String("dir", "", "Directory to scan for runtime configuration files")
	name := fs.String("name", "", "Run label (defaults to the directory name)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*dir) == "" {
		return errors.New("--dir is required")
	}
	payload, count, err := ingest.CollectDir(*dir)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no runtime configuration files found under %s", *dir)
	}
	fmt.Printf("collected %d configuration files\n", count)

	label := strings.TrimSpace(*name)
	if label == "" {
		label = filepath.Base(*dir) + ".zip"
	}

	client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	report, err := client.Analyze(ctx, label, payload)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func commandRuns(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of runs to display")
	offset := fs.Int("offset", 0, "Number of runs to skip")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	runs, err := client.ListRuns(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s\t%s\t%s\tdistinct=%d\tlicensed=%d\t%s\n",
			run.ID, run.Status, run.FileName, run.DistinctCount, run.LicensedCount,
			run.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func commandReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	runID := fs.String("run", "", "Analysis run identifier")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*runID) == "" {
		return errors.New("--run is required")
	}
	client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report, err := client.GetReport(ctx, *runID)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func commandVersions(args []string) error {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	client, err := clientFor(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	versions, err := client.CatalogVersions(ctx)
	if err != nil {
		return err
	}
	for _, version := range versions {
		fmt.Println(version)
	}
	return nil
}

func commandConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	apiBase := fs.String("api", "", "API base URL to persist as the default")
	fs.Parse(args)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*apiBase) == "" {
		fmt.Printf("api_base_url: %s\n", cfg.APIBaseURL)
		return nil
	}
	cfg.APIBaseURL = strings.TrimSpace(*apiBase)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("api_base_url set to %s\n", cfg.APIBaseURL)
	return nil
}

func clientFor(override string) (*apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	base := cfg.APIBaseURL
	if trimmed := strings.TrimSpace(override); trimmed != "" {
		base = trimmed
	}
	return apiclient.New(base)
}

func printReport(report apiclient.AnalysisReport) {
	fmt.Printf("run %s\t%s\t%s\n", report.ID, report.Status, report.FileName)
	fmt.Printf("files=%d\tdistinct=%d\tlegacy=%d\tlicensed=%d\n",
		report.TotalFiles, report.DistinctCount, report.LegacyCount, report.LicensedCount)
	if report.Error != "" {
		fmt.Printf("error: %s\n", report.Error)
	}
	for _, obs := range report.Observations {
		license := "free"
		if obs.RequiresLicense {
			license = "commercial"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
			obs.Version, obs.Vendor, obs.AgeTier, license, obs.LicenseExplanation)
	}
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:4000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "census", "config.json"), nil
}

func printUsage() {
	fmt.Printf("census CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	census analyze --file <release|properties|zip> [--name label] [--api http://localhost:4000]
	census scan --dir <path> [--name label] [--api url]
	census runs [--limit N] [--offset N] [--api url]
	census report --run <run-id> [--api url]
	census versions [--api url]
	census config [--api url]
	census version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}

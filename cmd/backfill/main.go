package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/app"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

// Reads collector output, one JSON artifact per line, and feeds it through
// the same ingestion path the API uses. Re-running a file is safe: identical
// payloads dedupe on content hash.
func main() {
	var path string
	var limit int
	var dryRun bool
	flag.StringVar(&path, "file", "", "NDJSON file to ingest (default stdin)")
	flag.IntVar(&limit, "limit", 0, "stop after N lines")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	in := os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			fmt.Printf("open %s: %v\n", path, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 4*1024*1024)

	var line, created, updated, unchanged, failed int
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		line++
		if raw == "" {
			continue
		}
		if limit > 0 && line > limit {
			break
		}

		var input services.CreateArtifactInput
		if err := json.Unmarshal([]byte(raw), &input); err != nil {
			failed++
			application.Log.Warn("skipping malformed line", "line", line, "error", err)
			continue
		}
		if dryRun {
			continue
		}

		result, err := application.Services.Artifact.Create(ctx, nil, input)
		if err != nil {
			failed++
			application.Log.Warn("ingest failed", "line", line, "source", input.Source, "source_id", input.SourceID, "error", err)
			continue
		}
		switch result.Outcome {
		case services.ArtifactCreated:
			created++
		case services.ArtifactUpdated:
			updated++
		default:
			unchanged++
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("read input: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("lines=%d created=%d updated=%d unchanged=%d failed=%d\n", line, created, updated, unchanged, failed)
}

// seed_scenarios.go queues a suite run for every scenario in a YAML file.
//
// Usage:
//
//	go run scripts/seed_scenarios.go -file scenarios.yaml -api http://localhost:8700 -client seed
//
// The file holds a list of scenarios, optionally one YAML document each:
//
//	- id: office-move
//	  criteria_weights: {cost: 0.5, commute: 0.5}
//	  alternative_scores:
//	    north: {cost: 0.4, commute: 0.9}
//	    south: {cost: 0.8, commute: 0.3}
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
)

type runRequest struct {
	Kind       string                `json:"kind"`
	ScenarioID string                `json:"scenario_id"`
	Request    analysis.SuiteRequest `json:"request"`
}

func main() {
	path := flag.String("file", "scenarios.yaml", "path to scenarios YAML")
	apiURL := flag.String("api", "http://localhost:8700", "Arbiter API base URL")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	dryRun := flag.Bool("dry-run", false, "rank scenarios locally without posting")
	flag.Parse()

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open scenarios: %v", err)
	}
	defer f.Close()

	var scenarios []analysis.Scenario
	dec := yaml.NewDecoder(f)
	for {
		var doc []analysis.Scenario
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			log.Fatalf("parse scenarios: %v", err)
		}
		scenarios = append(scenarios, doc...)
	}

	var valid []analysis.Scenario
	for _, sc := range scenarios {
		if err := sc.Validate(); err != nil {
			log.Printf("skip %q: %v", sc.ID, err)
			continue
		}
		valid = append(valid, sc)
	}
	log.Printf("parsed %d scenarios from %s, %d valid", len(scenarios), *path, len(valid))

	if *dryRun {
		for i, sc := range valid {
			r := sc.Ranking()
			fmt.Printf("[%d] %s: top=%s score=%.4f (%d alternatives)\n", i+1, sc.ID, r.Top(), r[0].Score, len(r))
		}
		return
	}

	client := &http.Client{Timeout: 10 * time.Second}
	queued, skipped := 0, 0
	for _, sc := range valid {
		body, _ := json.Marshal(runRequest{
			Kind:       "suite",
			ScenarioID: sc.ID,
			Request:    analysis.SuiteRequest{Base: &sc},
		})
		req, err := http.NewRequest("POST", *apiURL+"/api/v1/runs", bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %q: %v", sc.ID, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Client-ID", *clientID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %q: %v", sc.ID, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusAccepted {
			queued++
		} else {
			log.Printf("skip %q: status %d", sc.ID, resp.StatusCode)
			skipped++
		}
	}

	log.Printf("done: %d queued, %d skipped", queued, skipped)
}

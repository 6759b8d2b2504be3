// Package main implements the mandatory pre-deployment smoke test:
// submit a synthetic document through the producer's HTTP
// surface, poll its status until terminal or a 10s deadline, then verify a
// vector point with the expected deterministic id exists. The point's
// dimension and payload are not inspected. Exit non-zero blocks a deploy.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/vector"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/idgen"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const pollDeadline = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "smoke test failed:", err)
		os.Exit(1)
	}
	fmt.Println("smoke test passed")
}

type submitRequest struct {
	ProjectName  string `json:"project_name"`
	FilePath     string `json:"file_path"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

type submitResponse struct {
	DocumentID string `json:"document_id"`
	StatusURL  string `json:"status_url"`
}

func run(cfg config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), pollDeadline+10*time.Second)
	defer cancel()

	project := "smoke-test"
	filePath := fmt.Sprintf("smoke/%d.go", time.Now().UnixNano())
	content := "package smoke\n\nfunc Ping() string { return \"pong\" }\n"

	baseURL := "http://localhost:" + cfg.ServicePort
	submitted, err := submitDocument(ctx, baseURL, submitRequest{
		ProjectName:  project,
		FilePath:     filePath,
		DocumentType: string(domain.DocumentCode),
		Content:      content,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	deadline := time.Now().Add(pollDeadline)
	var final map[string]any
	for time.Now().Before(deadline) {
		final, err = pollStatus(ctx, baseURL, submitted.DocumentID)
		if err == nil {
			if status, _ := final["status"].(string); status == "success" || status == "failed" {
				break
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	if final == nil {
		return fmt.Errorf("status never returned for document %s", submitted.DocumentID)
	}
	if status, _ := final["status"].(string); status != "success" {
		return fmt.Errorf("document did not reach success within %s: last status %v", pollDeadline, final["status"])
	}

	vectorStore, err := vector.New(cfg.Vector.GRPCAddr, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("vector connect: %w", err)
	}
	defer vectorStore.Close()

	contentHash := idgen.ContentHash(domain.Normalize(content))
	pointID := idgen.DeterministicID(project, contentHash)

	exists, err := vectorStore.Exists(ctx, pointID.String())
	if err != nil {
		return fmt.Errorf("vector lookup: %w", err)
	}
	if !exists {
		return fmt.Errorf("expected vector point %s not found", pointID)
	}

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)
	graphStore := graph.New(neo4jDriver)

	if _, err := graphStore.GetProject(ctx, project); err != nil {
		return fmt.Errorf("expected Project node %q not found: %w", project, err)
	}
	return nil
}

func submitDocument(ctx context.Context, baseURL string, req submitRequest) (submitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return submitResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/process/document", bytes.NewReader(body))
	if err != nil {
		return submitResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return submitResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return submitResponse{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return submitResponse{}, err
	}
	return out, nil
}

func pollStatus(ctx context.Context, baseURL, documentID string) (map[string]any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/process/document/"+documentID+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

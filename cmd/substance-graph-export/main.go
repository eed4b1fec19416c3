// Command substance-graph-export projects a document snapshot into Neo4j
// for visual inspection: one node per document node, plus CONTAINS edges
// for container child order and ANNOTATES edges from annotation nodes to
// the node they anchor to. It reads the snapshot produced by
// cmd/substance-server (GET /api/snapshot) from a file given on the
// command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/systemshift/substance/internal/substance/wire"
)

func main() {
	snapshotPath := flag.String("snapshot", "", "path to a JSON snapshot file")
	uri := flag.String("uri", envOr("NEO4J_URI", "bolt://localhost:7687"), "neo4j bolt URI")
	user := flag.String("user", envOr("NEO4J_USER", "neo4j"), "neo4j username")
	password := flag.String("password", envOr("NEO4J_PASSWORD", "password"), "neo4j password")
	flag.Parse()

	if *snapshotPath == "" {
		log.Fatal("missing -snapshot")
	}

	data, err := os.ReadFile(*snapshotPath)
	if err != nil {
		log.Fatalf("reading snapshot file: %v", err)
	}
	var snap wire.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Fatalf("decoding snapshot: %v", err)
	}

	ctx := context.Background()
	driver, err := neo4j.NewDriverWithContext(*uri, neo4j.BasicAuth(*user, *password, ""))
	if err != nil {
		log.Fatalf("creating neo4j driver: %v", err)
	}
	defer driver.Close(ctx)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatalf("connecting to neo4j: %v", err)
	}

	if err := export(ctx, driver, snap); err != nil {
		log.Fatalf("exporting snapshot: %v", err)
	}
	log.Printf("exported %d nodes", len(snap.Nodes))
}

func export(ctx context.Context, driver neo4j.DriverWithContext, snap wire.Snapshot) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, n := range snap.Nodes {
			propsJSON, err := json.Marshal(n.Properties)
			if err != nil {
				return nil, fmt.Errorf("marshaling properties for %s: %w", n.ID, err)
			}
			if _, err := tx.Run(ctx, `
				MERGE (n:DocumentNode {id: $id})
				SET n.type = $type, n.properties = $properties
			`, map[string]any{"id": n.ID, "type": n.Type, "properties": string(propsJSON)}); err != nil {
				return nil, fmt.Errorf("merging node %s: %w", n.ID, err)
			}
		}

		for _, n := range snap.Nodes {
			if childIDs, ok := n.Properties["nodes"].([]any); ok {
				for i, raw := range childIDs {
					childID, ok := raw.(string)
					if !ok {
						continue
					}
					if _, err := tx.Run(ctx, `
						MATCH (parent:DocumentNode {id: $parent}), (child:DocumentNode {id: $child})
						MERGE (parent)-[r:CONTAINS]->(child)
						SET r.position = $position
					`, map[string]any{"parent": n.ID, "child": childID, "position": i}); err != nil {
						return nil, fmt.Errorf("linking container %s -> %s: %w", n.ID, childID, err)
					}
				}
			}

			if nodeID, startOffset, endOffset, ok := annotationAnchor(n); ok {
				if _, err := tx.Run(ctx, `
					MATCH (ann:DocumentNode {id: $annID}), (target:DocumentNode {id: $targetID})
					MERGE (ann)-[r:ANNOTATES]->(target)
					SET r.startOffset = $start, r.endOffset = $end
				`, map[string]any{"annID": n.ID, "targetID": nodeID, "start": startOffset, "end": endOffset}); err != nil {
					return nil, fmt.Errorf("linking annotation %s -> %s: %w", n.ID, nodeID, err)
				}
			}
		}
		return nil, nil
	})
	return err
}

// annotationAnchor extracts the (nodeID, startOffset, endOffset) an
// annotation node's "path" property refers to, if n has one. The wire
// form encodes a Path as a two-element JSON array.
func annotationAnchor(n wire.Node) (nodeID string, start, end float64, ok bool) {
	rawPath, hasPath := n.Properties["path"].([]any)
	if !hasPath || len(rawPath) != 2 {
		return "", 0, 0, false
	}
	id, ok := rawPath[0].(string)
	if !ok {
		return "", 0, 0, false
	}
	start, _ = n.Properties["startOffset"].(float64)
	end, _ = n.Properties["endOffset"].(float64)
	return id, start, end, true
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

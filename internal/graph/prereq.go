package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/skillforge-backend/internal/logger"
	"github.com/yungbote/skillforge-backend/internal/utils"
)

// PrerequisiteGraph answers which topics a topic requires. Known topics come
// from the concept graph; callers fall back to heuristics for unknown ones.
type PrerequisiteGraph interface {
	// Direct returns the immediate prerequisites of a topic and whether the
	// topic is known to the graph.
	Direct(ctx context.Context, topic string) ([]string, bool, error)
	// TransitiveCount counts all prerequisites reachable from a topic.
	TransitiveCount(ctx context.Context, topic string) (int, bool, error)
	Healthy(ctx context.Context) bool
}

// --- Neo4j-backed graph with static fallback ---

type neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger
	fallback *StaticGraph
}

func NewNeo4jGraph(ctx context.Context, log *logger.Logger) (PrerequisiteGraph, error) {
	graphLog := log.With("component", "PrerequisiteGraph")

	uri := utils.GetEnv("NEO4J_URI", "", log)
	if uri == "" {
		graphLog.Info("NEO4J_URI not set, using static prerequisite graph only")
		return NewStaticGraph(), nil
	}
	user := utils.GetEnv("NEO4J_USER", "neo4j", log)
	password := utils.GetEnv("NEO4J_PASSWORD", "", log)
	database := utils.GetEnv("NEO4J_DATABASE", "neo4j", log)

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	return &neo4jGraph{
		driver:   driver,
		database: database,
		log:      graphLog,
		fallback: NewStaticGraph(),
	}, nil
}

func (g *neo4jGraph) Direct(ctx context.Context, topic string) ([]string, bool, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver, `
		MATCH (t:Topic {name: $topic})-[:REQUIRES]->(p:Topic)
		RETURN p.name AS name
	`, map[string]any{"topic": topic},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
	)
	if err != nil {
		g.log.Warn("Neo4j prerequisite lookup failed, falling back to static graph", "topic", topic, "error", err)
		return g.fallback.Direct(ctx, topic)
	}
	if len(result.Records) == 0 {
		// Not known to the graph; the static set may still have it.
		return g.fallback.Direct(ctx, topic)
	}
	out := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		if name, ok := rec.Get("name"); ok {
			out = append(out, fmt.Sprint(name))
		}
	}
	return out, true, nil
}

func (g *neo4jGraph) TransitiveCount(ctx context.Context, topic string) (int, bool, error) {
	result, err := neo4j.ExecuteQuery(ctx, g.driver, `
		MATCH (t:Topic {name: $topic})-[:REQUIRES*1..]->(p:Topic)
		RETURN count(DISTINCT p) AS total
	`, map[string]any{"topic": topic},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(g.database),
	)
	if err != nil {
		g.log.Warn("Neo4j transitive lookup failed, falling back to static graph", "topic", topic, "error", err)
		return g.fallback.TransitiveCount(ctx, topic)
	}
	if len(result.Records) == 0 {
		return g.fallback.TransitiveCount(ctx, topic)
	}
	total, ok := result.Records[0].Get("total")
	if !ok {
		return g.fallback.TransitiveCount(ctx, topic)
	}
	n, _ := total.(int64)
	if n == 0 {
		return g.fallback.TransitiveCount(ctx, topic)
	}
	return int(n), true, nil
}

func (g *neo4jGraph) Healthy(ctx context.Context) bool {
	if g == nil || g.driver == nil {
		return false
	}
	return g.driver.VerifyConnectivity(ctx) == nil
}

// --- Static in-code graph ---

// StaticGraph is the seed prerequisite set, used when no concept graph is
// configured and as the fallback when it is unreachable.
type StaticGraph struct {
	edges map[string][]string
}

func NewStaticGraph() *StaticGraph {
	return &StaticGraph{edges: map[string][]string{
		"budgeting":             {},
		"audience targeting":    {"budgeting"},
		"ad copywriting":        {},
		"campaign analytics":    {"budgeting", "audience targeting"},
		"a/b testing":           {"campaign analytics"},
		"bid strategies":        {"budgeting", "campaign analytics"},
		"attribution modeling":  {"campaign analytics", "a/b testing"},
		"conversion tracking":   {"campaign analytics"},
		"retargeting":           {"audience targeting", "conversion tracking"},
		"creative optimization": {"ad copywriting", "a/b testing"},
		"channel strategy":      {"audience targeting", "campaign analytics"},
		"landing page design":   {"ad copywriting"},
		"email marketing":       {"ad copywriting", "audience targeting"},
		"seo fundamentals":      {},
		"content marketing":     {"seo fundamentals", "ad copywriting"},
	}}
}

func (s *StaticGraph) Direct(_ context.Context, topic string) ([]string, bool, error) {
	prereqs, ok := s.edges[normalizeTopic(topic)]
	if !ok {
		return nil, false, nil
	}
	out := make([]string, len(prereqs))
	copy(out, prereqs)
	return out, true, nil
}

func (s *StaticGraph) TransitiveCount(ctx context.Context, topic string) (int, bool, error) {
	key := normalizeTopic(topic)
	if _, ok := s.edges[key]; !ok {
		return 0, false, nil
	}
	seen := map[string]bool{}
	var walk func(t string)
	walk = func(t string) {
		for _, p := range s.edges[t] {
			if !seen[p] {
				seen[p] = true
				walk(p)
			}
		}
	}
	walk(key)
	return len(seen), true, nil
}

func (s *StaticGraph) Healthy(_ context.Context) bool { return true }

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}

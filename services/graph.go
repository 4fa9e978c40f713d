package services

import (
	"sort"
	"strings"

	"github.com/camden-git/peoplegraph/models"
)

// DefaultMaxDegrees is the hop bound FindPath uses when the caller has none.
const DefaultMaxDegrees = 3

const topConnectedLimit = 5

const (
	strongStrength = 4
	weakStrength   = 2
)

type category int

const (
	categoryFamily category = iota
	categoryProfessional
	categorySocial
)

var categoryTags = map[string]category{
	"family":      categoryFamily,
	"parent":      categoryFamily,
	"child":       categoryFamily,
	"sibling":     categoryFamily,
	"spouse":      categoryFamily,
	"partner":     categoryFamily,
	"relative":    categoryFamily,
	"cousin":      categoryFamily,
	"grandparent": categoryFamily,
	"grandchild":  categoryFamily,
	"in-law":      categoryFamily,

	"colleague":    categoryProfessional,
	"coworker":     categoryProfessional,
	"business":     categoryProfessional,
	"client":       categoryProfessional,
	"mentor":       categoryProfessional,
	"mentee":       categoryProfessional,
	"manager":      categoryProfessional,
	"employee":     categoryProfessional,
	"professional": categoryProfessional,

	"friend":       categorySocial,
	"acquaintance": categorySocial,
	"neighbor":     categorySocial,
	"classmate":    categorySocial,
	"roommate":     categorySocial,
	"social":       categorySocial,
}

// PersonSummary counts one person's connections by category and strength
type PersonSummary struct {
	PersonID     string `json:"person_id"`
	Total        int    `json:"total"`
	Family       int    `json:"family"`
	Professional int    `json:"professional"`
	Social       int    `json:"social"`
	Other        int    `json:"other"`
	Strong       int    `json:"strong"`
	Weak         int    `json:"weak"`
}

// PersonDegree is a person's undirected connection count
type PersonDegree struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Degree   int    `json:"degree"`
}

// NetworkStats summarizes an owner's whole relationship graph
type NetworkStats struct {
	PersonCount     int            `json:"person_count"`
	ConnectionCount int            `json:"connection_count"`
	Degrees         []PersonDegree `json:"degrees"`
	MostConnected   []PersonDegree `json:"most_connected"`
	Isolated        []PersonDegree `json:"isolated"`
	AverageDegree   float64        `json:"average_degree"`
	Density         float64        `json:"density"`
}

// AnalyzePerson summarizes the connections incident to personID. A
// connection counts once per category its tags reach; tags outside the known
// categories (or no tags) count as "other". Unset strength is medium.
func AnalyzePerson(personID string, connections []models.Connection) PersonSummary {
	summary := PersonSummary{PersonID: personID}
	for i := range connections {
		c := &connections[i]
		if !c.Touches(personID) {
			continue
		}
		summary.Total++

		var family, professional, social, other bool
		for _, tag := range c.Types {
			cat, ok := categoryTags[strings.ToLower(strings.TrimSpace(tag))]
			if !ok {
				other = true
				continue
			}
			switch cat {
			case categoryFamily:
				family = true
			case categoryProfessional:
				professional = true
			case categorySocial:
				social = true
			}
		}
		if len(c.Types) == 0 {
			other = true
		}
		summary.Family += boolToInt(family)
		summary.Professional += boolToInt(professional)
		summary.Social += boolToInt(social)
		summary.Other += boolToInt(other)

		if c.Strength != nil {
			switch {
			case *c.Strength >= strongStrength:
				summary.Strong++
			case *c.Strength < weakStrength:
				summary.Weak++
			}
		}
	}
	return summary
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// AnalyzeNetwork computes degrees, the most connected people, isolated
// people, average degree and density over a snapshot. Connections with an
// endpoint outside persons, and self-loops, are ignored.
func AnalyzeNetwork(persons []models.Person, connections []models.Connection) NetworkStats {
	index := make(map[string]int, len(persons))
	degrees := make([]PersonDegree, len(persons))
	for i, p := range persons {
		index[p.ID] = i
		degrees[i] = PersonDegree{PersonID: p.ID, Name: p.Name}
	}

	edges := 0
	for _, c := range connections {
		from, okFrom := index[c.FromPersonID]
		to, okTo := index[c.ToPersonID]
		if !okFrom || !okTo || from == to {
			continue
		}
		degrees[from].Degree++
		degrees[to].Degree++
		edges++
	}

	stats := NetworkStats{
		PersonCount:     len(persons),
		ConnectionCount: edges,
		Degrees:         degrees,
		MostConnected:   []PersonDegree{},
		Isolated:        []PersonDegree{},
	}

	total := 0
	for _, d := range degrees {
		total += d.Degree
		if d.Degree == 0 {
			stats.Isolated = append(stats.Isolated, d)
		}
	}

	ranked := make([]PersonDegree, 0, len(degrees))
	for _, d := range degrees {
		if d.Degree > 0 {
			ranked = append(ranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Degree > ranked[j].Degree })
	if len(ranked) > topConnectedLimit {
		ranked = ranked[:topConnectedLimit]
	}
	stats.MostConnected = ranked

	n := len(persons)
	if n > 0 {
		stats.AverageDegree = float64(total) / float64(n)
	}
	if n > 1 {
		possible := float64(n) * float64(n-1) / 2
		stats.Density = min(1.0, float64(edges)/possible)
	}
	return stats
}

// adjacency builds an undirected neighbor list in the order connections
// first mention each neighbor.
func adjacency(connections []models.Connection) map[string][]string {
	adj := make(map[string][]string)
	linked := make(map[[2]string]bool)
	add := func(a, b string) {
		if linked[[2]string{a, b}] {
			return
		}
		linked[[2]string{a, b}] = true
		adj[a] = append(adj[a], b)
	}
	for _, c := range connections {
		if c.FromPersonID == c.ToPersonID {
			continue
		}
		add(c.FromPersonID, c.ToPersonID)
		add(c.ToPersonID, c.FromPersonID)
	}
	return adj
}

// FindPath returns the shortest chain of person ids from fromID to toID,
// endpoints included, using at most maxDegrees hops. It returns nil when no
// such chain exists.
func FindPath(fromID, toID string, connections []models.Connection, maxDegrees int) []string {
	if fromID == toID {
		return []string{fromID}
	}
	if maxDegrees <= 0 || len(connections) == 0 {
		return nil
	}

	adj := adjacency(connections)
	parent := map[string]string{}
	visited := map[string]bool{fromID: true}
	frontier := []string{fromID}

	for hops := 0; hops < maxDegrees && len(frontier) > 0; hops++ {
		var next []string
		for _, node := range frontier {
			for _, neighbor := range adj[node] {
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				parent[neighbor] = node
				if neighbor == toID {
					return walkBack(parent, fromID, toID)
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return nil
}

func walkBack(parent map[string]string, fromID, toID string) []string {
	path := []string{toID}
	for node := toID; node != fromID; {
		node = parent[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

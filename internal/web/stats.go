package web

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"privaterelay/internal/store"
)

// HistoryScanner lists every history record.
type HistoryScanner interface {
	Scan(ctx context.Context) ([]store.HistoryRecord, error)
}

// BlocklistScanner lists every blocklist entry.
type BlocklistScanner interface {
	Scan(ctx context.Context) ([]store.BlocklistEntry, error)
}

// Stats renders the statistics page: per-recipient delivery totals with a
// per-sender breakdown, followed by the blocklist grouped by category.
type Stats struct {
	history   HistoryScanner
	blocklist BlocklistScanner
}

// NewStats creates a Stats page over the given scanners.
func NewStats(history HistoryScanner, blocklist BlocklistScanner) *Stats {
	return &Stats{
		history:   history,
		blocklist: blocklist,
	}
}

// senderCount is one sender's share of a recipient's total.
type senderCount struct {
	Address string
	Total   int
}

// recipientStats aggregates the history rows of a single recipient.
type recipientStats struct {
	Address string
	Total   int
	Senders []senderCount
}

// blocklistTables groups blocklist entries by category for rendering.
type blocklistTables struct {
	ToAddrs []string
	Froms   []string
	Domains []string
}

var statsTemplate = template.Must(template.New("stats").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Private Relay - Statistics</title>
<style>
body { margin: 1em; font-family: sans-serif; }
table { width: 80%; border-collapse: collapse; border: 1px solid #cbcbcb; }
td, th { border: 1px solid #cbcbcb; padding: .5em 1em; text-align: left; vertical-align: top; }
thead { background-color: #e0e0e0; }
tr:nth-child(even) td { background-color: #f2f2f2; }
.mono { font-family: monospace; }
</style>
</head>
<body>
<h1>Private Relay - Statistics</h1>
<h2>History</h2>
<table>
<thead><tr><th>Address</th><th>Count</th><th>Senders</th></tr></thead>
<tbody>
{{- range .Recipients}}
<tr>
<td class="mono">{{.Address}}</td>
<td class="mono">{{.Total}}</td>
<td><table>
{{- range .Senders}}
<tr><td class="mono">{{.Address}}</td><td class="mono">{{.Total}}</td></tr>
{{- end}}
</table></td>
</tr>
{{- end}}
</tbody>
</table>
<h2>Blocklist</h2>
<h3>To</h3>
<ul>{{range .Blocklist.ToAddrs}}<li class="mono">{{.}}</li>{{end}}</ul>
<h3>From</h3>
<ul>{{range .Blocklist.Froms}}<li class="mono">{{.}}</li>{{end}}</ul>
<h3>Domain</h3>
<ul>{{range .Blocklist.Domains}}<li class="mono">{{.}}</li>{{end}}</ul>
</body>
</html>
`))

// Render builds the statistics page HTML.
func (s *Stats) Render(ctx context.Context) (string, error) {
	records, err := s.history.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	entries, err := s.blocklist.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load blocklist: %w", err)
	}

	data := struct {
		Recipients []recipientStats
		Blocklist  blocklistTables
	}{
		Recipients: aggregateHistory(records),
		Blocklist:  groupBlocklist(entries),
	}

	var b strings.Builder
	if err := statsTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render statistics page: %w", err)
	}

	return b.String(), nil
}

// aggregateHistory counts deliveries per recipient and per sender within
// each recipient. Output is sorted by address for stable rendering.
func aggregateHistory(records []store.HistoryRecord) []recipientStats {
	byRecipient := make(map[string]map[string]int)
	for _, record := range records {
		senders, ok := byRecipient[record.To]
		if !ok {
			senders = make(map[string]int)
			byRecipient[record.To] = senders
		}
		senders[record.From]++
	}

	stats := make([]recipientStats, 0, len(byRecipient))
	for address, senders := range byRecipient {
		entry := recipientStats{Address: address}
		for sender, count := range senders {
			entry.Total += count
			entry.Senders = append(entry.Senders, senderCount{Address: sender, Total: count})
		}
		sort.Slice(entry.Senders, func(i, j int) bool {
			return entry.Senders[i].Address < entry.Senders[j].Address
		})
		stats = append(stats, entry)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Address < stats[j].Address
	})

	return stats
}

// groupBlocklist splits entries by category, sorted within each group.
func groupBlocklist(entries []store.BlocklistEntry) blocklistTables {
	var tables blocklistTables
	for _, entry := range entries {
		switch entry.Category {
		case store.CategoryToAddr:
			tables.ToAddrs = append(tables.ToAddrs, entry.Address)
		case store.CategoryFromAddr:
			tables.Froms = append(tables.Froms, entry.Address)
		case store.CategoryDomain:
			tables.Domains = append(tables.Domains, entry.Address)
		}
	}

	sort.Strings(tables.ToAddrs)
	sort.Strings(tables.Froms)
	sort.Strings(tables.Domains)

	return tables
}

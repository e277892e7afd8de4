package web

import (
	"context"
	"errors"
	"strings"
	"testing"

	"privaterelay/internal/store"
)

type mockHistoryScanner struct {
	records []store.HistoryRecord
	err     error
}

func (m *mockHistoryScanner) Scan(_ context.Context) ([]store.HistoryRecord, error) {
	return m.records, m.err
}

type mockBlocklistScanner struct {
	entries []store.BlocklistEntry
	err     error
}

func (m *mockBlocklistScanner) Scan(_ context.Context) ([]store.BlocklistEntry, error) {
	return m.entries, m.err
}

func TestAggregateHistory(t *testing.T) {
	t.Parallel()

	records := []store.HistoryRecord{
		{To: "shop@relay.example", From: "news@store.com"},
		{To: "shop@relay.example", From: "news@store.com"},
		{To: "shop@relay.example", From: "billing@store.com"},
		{To: "forum@relay.example", From: "digest@forum.com"},
	}

	stats := aggregateHistory(records)

	if len(stats) != 2 {
		t.Fatalf("recipients: got %d, want 2", len(stats))
	}

	// Sorted by address: forum first, then shop.
	if stats[0].Address != "forum@relay.example" || stats[0].Total != 1 {
		t.Errorf("stats[0]: got %+v", stats[0])
	}

	shop := stats[1]
	if shop.Address != "shop@relay.example" || shop.Total != 3 {
		t.Errorf("stats[1]: got %+v", shop)
	}
	if len(shop.Senders) != 2 {
		t.Fatalf("shop senders: got %d, want 2", len(shop.Senders))
	}
	if shop.Senders[0].Address != "billing@store.com" || shop.Senders[0].Total != 1 {
		t.Errorf("shop.Senders[0]: got %+v", shop.Senders[0])
	}
	if shop.Senders[1].Address != "news@store.com" || shop.Senders[1].Total != 2 {
		t.Errorf("shop.Senders[1]: got %+v", shop.Senders[1])
	}
}

func TestGroupBlocklist(t *testing.T) {
	t.Parallel()

	entries := []store.BlocklistEntry{
		{Address: "spam.example", Category: store.CategoryDomain},
		{Address: "dead@relay.example", Category: store.CategoryToAddr},
		{Address: "spammer@external.com", Category: store.CategoryFromAddr},
		{Address: "aaa.example", Category: store.CategoryDomain},
	}

	tables := groupBlocklist(entries)

	if len(tables.ToAddrs) != 1 || tables.ToAddrs[0] != "dead@relay.example" {
		t.Errorf("ToAddrs: got %v", tables.ToAddrs)
	}
	if len(tables.Froms) != 1 || tables.Froms[0] != "spammer@external.com" {
		t.Errorf("Froms: got %v", tables.Froms)
	}
	if len(tables.Domains) != 2 || tables.Domains[0] != "aaa.example" {
		t.Errorf("Domains: got %v, want sorted", tables.Domains)
	}
}

func TestStatsRender(t *testing.T) {
	t.Parallel()

	stats := NewStats(
		&mockHistoryScanner{records: []store.HistoryRecord{
			{To: "shop@relay.example", From: "news@store.com"},
		}},
		&mockBlocklistScanner{entries: []store.BlocklistEntry{
			{Address: "spam.example", Category: store.CategoryDomain},
		}},
	)

	html, err := stats.Render(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"shop@relay.example", "news@store.com", "spam.example"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestStatsRenderPropagatesScanError(t *testing.T) {
	t.Parallel()

	stats := NewStats(
		&mockHistoryScanner{err: errors.New("throttled")},
		&mockBlocklistScanner{},
	)

	if _, err := stats.Render(context.Background()); err == nil {
		t.Fatal("expected scan error to propagate")
	}
}

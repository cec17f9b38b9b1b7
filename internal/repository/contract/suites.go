package contract

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/maxviazov/lp-feed/internal/model"
	"github.com/maxviazov/lp-feed/internal/repository"
)

// FetcherFactory builds a data source and a way to seed it with LPs titled
// as given, inserted in order so later titles get larger ids.
type FetcherFactory func(t *testing.T) (f repository.Fetcher[model.Lp], seed func(titles ...string), cleanup func())

func titles(n int, prefix string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + " " + string(rune('A'+i))
	}
	return out
}

// RunFetcherContract checks the behaviour every LP data source must share:
// server-issued cursors that chain without gaps, search, and ordering.
func RunFetcherContract(t *testing.T, makeFetcher FetcherFactory) {
	t.Helper()

	t.Run("first_page", func(t *testing.T) {
		f, seed, cleanup := makeFetcher(t)
		t.Cleanup(cleanup)
		seed(titles(5, "Blue")...)
		page, err := f.FetchPage(context.Background(), repository.Query{Limit: 3, Order: repository.OrderAsc})
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(page.Items) != 3 || !page.HasNext || page.NextCursor == repository.InitialCursor {
			t.Fatalf("unexpected page: len=%d has_next=%t cursor=%q", len(page.Items), page.HasNext, page.NextCursor)
		}
	})

	t.Run("cursor_chain_covers_all_items", func(t *testing.T) {
		f, seed, cleanup := makeFetcher(t)
		t.Cleanup(cleanup)
		seed(titles(7, "Green")...)
		ctx := context.Background()
		q := repository.Query{Limit: 3, Order: repository.OrderAsc}
		var got []string
		for i := 0; i < 10; i++ {
			page, err := f.FetchPage(ctx, q)
			if err != nil {
				t.Fatalf("fetch %d failed: %v", i, err)
			}
			for _, lp := range page.Items {
				got = append(got, lp.Title)
			}
			if !page.HasNext {
				break
			}
			q.Cursor = page.NextCursor
		}
		if diff := cmp.Diff(titles(7, "Green"), got); diff != "" {
			t.Fatalf("cursor chain mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("desc_order", func(t *testing.T) {
		f, seed, cleanup := makeFetcher(t)
		t.Cleanup(cleanup)
		seed("Old", "Middle", "New")
		page, err := f.FetchPage(context.Background(), repository.Query{Limit: 10, Order: repository.OrderDesc})
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		got := make([]string, 0, len(page.Items))
		for _, lp := range page.Items {
			got = append(got, lp.Title)
		}
		if diff := cmp.Diff([]string{"New", "Middle", "Old"}, got); diff != "" {
			t.Fatalf("unexpected order (-want +got):\n%s", diff)
		}
		if page.HasNext {
			t.Fatalf("expected last page")
		}
	})

	t.Run("search_filters", func(t *testing.T) {
		f, seed, cleanup := makeFetcher(t)
		t.Cleanup(cleanup)
		seed("Kind of Blue", "Blue Train", "Abbey Road")
		page, err := f.FetchPage(context.Background(), repository.Query{Limit: 10, Order: repository.OrderAsc, Search: "blue"})
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(page.Items) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(page.Items))
		}
	})

	t.Run("empty_result", func(t *testing.T) {
		f, _, cleanup := makeFetcher(t)
		t.Cleanup(cleanup)
		page, err := f.FetchPage(context.Background(), repository.Query{Limit: 10, Order: repository.OrderDesc, Search: "nothing"})
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(page.Items) != 0 || page.HasNext {
			t.Fatalf("expected empty last page, got %+v", page)
		}
	})
}

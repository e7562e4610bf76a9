package banner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// PageFunc fetches one page, pages are numbered from 1.
type PageFunc[T any] func(ctx context.Context, page, size int) ([]T, error)

func pageCount(pageSize, ceiling int) (int, error) {
	if pageSize <= 0 || ceiling <= 0 {
		return 0, fmt.Errorf(
			"%w: page size (%d) and ceiling (%d) must be positive",
			ErrConfiguration, pageSize, ceiling,
		)
	}
	return (ceiling + pageSize - 1) / pageSize, nil
}

func truncate[T any](records []T, ceiling int) []T {
	if len(records) > ceiling {
		return records[:ceiling]
	}
	return records
}

// FetchAllPages requests every page up to ceiling records concurrently, at
// most limit at a time (unbounded if limit <= 0). The result is in page
// order regardless of completion order and never holds more than ceiling
// records. A failed page fails the whole fetch.
func FetchAllPages[T any](ctx context.Context, fetch PageFunc[T], pageSize, ceiling, limit int) ([]T, error) {
	ctx, span := tracer.Start(ctx, "batch:FetchAllPages")
	defer span.End()

	n, err := pageCount(pageSize, ceiling)
	if err != nil {
		return nil, recordError(span, err, "invalid page bounds")
	}
	span.SetAttributes(
		attribute.Int("batch.pages", n),
		attribute.Int("batch.page_size", pageSize),
	)

	pages := make([][]T, n)
	group, groupCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		group.Go(func() error {
			records, err := fetch(groupCtx, i+1, pageSize)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			pages[i] = records
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return nil, recordError(span, err, "failed to fetch page")
	}

	total := 0
	for _, p := range pages {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range pages {
		out = append(out, p...)
	}
	return truncate(out, ceiling), nil
}

// FetchSequential requests pages one after another until a page comes back
// short of pageSize or ceiling records have been read.
func FetchSequential[T any](ctx context.Context, fetch PageFunc[T], pageSize, ceiling int) ([]T, error) {
	ctx, span := tracer.Start(ctx, "batch:FetchSequential")
	defer span.End()

	n, err := pageCount(pageSize, ceiling)
	if err != nil {
		return nil, recordError(span, err, "invalid page bounds")
	}

	var out []T
	page := 1
	for ; page <= n; page++ {
		records, err := fetch(ctx, page, pageSize)
		if err != nil {
			return nil, recordError(span, fmt.Errorf("page %d: %w", page, err), "failed to fetch page")
		}
		out = append(out, records...)
		if len(records) < pageSize {
			break
		}
	}
	span.SetAttributes(attribute.Int("batch.pages", min(page, n)))

	return truncate(out, ceiling), nil
}

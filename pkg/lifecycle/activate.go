package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/rs/zerolog"
)

// Activate deletes every partition that does not belong to current.
// Returns the deleted partition names, sorted. A partition that fails to
// delete is skipped and reported in the joined error.
func Activate(ctx context.Context, store partition.Store, current Names, logger *zerolog.Logger) ([]string, error) {
	log := componentLogger(logger)

	existing, err := store.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var (
		deleted []string
		errs    []error
	)
	for _, name := range existing {
		if current.Contains(name) {
			continue
		}

		log.Info().Str("partition", name).Msg("Deleting old partition")
		if _, err := store.Remove(ctx, name); err != nil {
			log.Error().Err(err).Str("partition", name).Msg("Failed to delete old partition")
			errs = append(errs, fmt.Errorf("remove %q: %w", name, err))
			continue
		}
		PartitionsDeleted.Inc()
		deleted = append(deleted, name)
	}

	sort.Strings(deleted)
	return deleted, errors.Join(errs...)
}

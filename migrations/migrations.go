// Package migrations holds one-off data fixes, applied in order by Run.
package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

type Migration struct {
	Name  string
	Apply func(ctx context.Context, database *mongo.Database) (int64, error)
}

func All() []Migration {
	return []Migration{
		{Name: "001_split_doctor_name", Apply: SplitDoctorName},
		{Name: "002_create_indexes", Apply: CreateIndexes},
		{Name: "003_backfill_chat_pair_key", Apply: BackfillChatPairKey},
	}
}

/*
* Every migration is idempotent, so all of them run each time
* The first failure stops the run
 */
func Run(ctx context.Context, database *mongo.Database, migrations []Migration) error {
	for _, m := range migrations {
		start := time.Now()
		n, err := m.Apply(ctx, database)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Int64("updated", n).Dur("took", time.Since(start)).Msg("Migration applied")
	}
	return nil
}

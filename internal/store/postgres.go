package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/config"
)

// OpenPostgres opens and pings a PostgreSQL connection.
func OpenPostgres(ctx context.Context, cfg config.StoreConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// CreateTables creates the horse tables and their lookup indexes.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*Horse)(nil),
		(*Race)(nil),
		(*Registration)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model interface{}
		name  string
	}{
		{(*Race)(nil), "horse_races_external_id_idx"},
		{(*Registration)(nil), "horse_registrations_external_id_idx"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).IfNotExists().Column("external_id").Exec(ctx); err != nil {
			return fmt.Errorf("creating index %s: %w", idx.name, err)
		}
	}
	return nil
}

// PostgresStore implements types.HorseStore with bun on PostgreSQL.
type PostgresStore struct {
	db  *bun.DB
	loc *time.Location
	now func() time.Time
}

// NewPostgresStore wraps an open database. Dates are returned in loc.
func NewPostgresStore(db *bun.DB, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.Local
	}
	return &PostgresStore{db: db, loc: loc, now: time.Now}
}

var _ types.HorseStore = (*PostgresStore)(nil)

// ReplaceHorseDetail upserts the horse row and replaces all of its races and
// registrations in one transaction.
func (s *PostgresStore) ReplaceHorseDetail(ctx context.Context, externalID string, detail *types.HorseDetailData) error {
	if err := validate(externalID, detail); err != nil {
		return err
	}

	horse := toHorseModel(externalID, detail, s.now())
	races := toRaceModels(externalID, detail.Races)
	regs := toRegistrationModels(externalID, detail.Registrations)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(horse).
			On("CONFLICT (external_id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("owner = EXCLUDED.owner").
			Set("breeder = EXCLUDED.breeder").
			Set("handicap_points = EXCLUDED.handicap_points").
			Set("prize_money = EXCLUDED.prize_money").
			Set("owner_premium = EXCLUDED.owner_premium").
			Set("breeder_premium = EXCLUDED.breeder_premium").
			Set("total_earnings = EXCLUDED.total_earnings").
			Set("statistics = EXCLUDED.statistics").
			Set("pedigree = EXCLUDED.pedigree").
			Set("fetched_at = EXCLUDED.fetched_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upserting horse: %w", err)
		}

		if _, err := tx.NewDelete().Model((*Race)(nil)).Where("external_id = ?", externalID).Exec(ctx); err != nil {
			return fmt.Errorf("deleting races: %w", err)
		}
		if _, err := tx.NewDelete().Model((*Registration)(nil)).Where("external_id = ?", externalID).Exec(ctx); err != nil {
			return fmt.Errorf("deleting registrations: %w", err)
		}

		if len(races) > 0 {
			if _, err := tx.NewInsert().Model(&races).Exec(ctx); err != nil {
				return fmt.Errorf("inserting races: %w", err)
			}
		}
		if len(regs) > 0 {
			if _, err := tx.NewInsert().Model(&regs).Exec(ctx); err != nil {
				return fmt.Errorf("inserting registrations: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace horse %s: %w", externalID, err)
	}
	return nil
}

func (s *PostgresStore) GetHorseDetail(ctx context.Context, externalID string) (*types.HorseDetailData, error) {
	var horse Horse
	err := s.db.NewSelect().Model(&horse).Where("h.external_id = ?", externalID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load horse %s: %w", externalID, err)
	}

	var races []Race
	if err := s.db.NewSelect().Model(&races).Where("r.external_id = ?", externalID).Order("r.seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load races of %s: %w", externalID, err)
	}
	var regs []Registration
	if err := s.db.NewSelect().Model(&regs).Where("g.external_id = ?", externalID).Order("g.seq ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to load registrations of %s: %w", externalID, err)
	}

	return fromModels(&horse, races, regs, s.loc), nil
}

type horseSummaryRow struct {
	ExternalID string    `bun:"external_id"`
	Name       string    `bun:"name"`
	RaceCount  int       `bun:"race_count"`
	UpdatedAt  time.Time `bun:"updated_at"`
}

func (s *PostgresStore) ListHorses(ctx context.Context) ([]types.HorseSummary, error) {
	var rows []horseSummaryRow
	err := s.db.NewSelect().
		Model((*Horse)(nil)).
		Column("h.external_id", "h.name", "h.updated_at").
		ColumnExpr("(SELECT count(*) FROM horse_races AS r WHERE r.external_id = h.external_id) AS race_count").
		Order("h.external_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list horses: %w", err)
	}

	out := make([]types.HorseSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.HorseSummary{
			ExternalID: r.ExternalID,
			Name:       r.Name,
			RaceCount:  r.RaceCount,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

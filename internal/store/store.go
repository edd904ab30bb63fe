// Package store persists fetched horse details.
//
// Every write is a full replace: the races and registrations of a horse are
// deleted and re-inserted from the latest fetch, never merged.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/toozej/go-thoroughbred/internal/types"
	"github.com/toozej/go-thoroughbred/pkg/config"
)

var (
	// ErrNotFound is returned when no horse is stored under the external id.
	ErrNotFound = errors.New("horse not found")
	// ErrInvalidDetail is returned for writes without an id or detail.
	ErrInvalidDetail = errors.New("invalid horse detail")
)

// WriteRecorder counts store writes by outcome.
type WriteRecorder interface {
	RecordStoreWrite(outcome string)
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig, loc *time.Location, logger *logrus.Logger) (types.HorseStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		logger.WithFields(logrus.Fields{
			"component": "store",
			"operation": "open",
			"driver":    "memory",
		}).Info("Using in-memory store")
		return NewMemoryStore(), nil
	case "postgres":
		db, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := CreateTables(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"component": "store",
			"operation": "open",
			"driver":    "postgres",
		}).Info("Connected to PostgreSQL store")
		return NewPostgresStore(db, loc), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Recorded wraps s so every ReplaceHorseDetail outcome is counted.
func Recorded(s types.HorseStore, recorder WriteRecorder) types.HorseStore {
	if recorder == nil {
		return s
	}
	return &recordedStore{HorseStore: s, recorder: recorder}
}

type recordedStore struct {
	types.HorseStore
	recorder WriteRecorder
}

func (r *recordedStore) ReplaceHorseDetail(ctx context.Context, externalID string, detail *types.HorseDetailData) error {
	err := r.HorseStore.ReplaceHorseDetail(ctx, externalID, detail)
	if err != nil {
		r.recorder.RecordStoreWrite("error")
		return err
	}
	r.recorder.RecordStoreWrite("success")
	return nil
}

func validate(externalID string, detail *types.HorseDetailData) error {
	if strings.TrimSpace(externalID) == "" {
		return fmt.Errorf("%w: external id required", ErrInvalidDetail)
	}
	if detail == nil {
		return fmt.Errorf("%w: detail required", ErrInvalidDetail)
	}
	return nil
}

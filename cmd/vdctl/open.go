package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"virtual-drive/internal/database"
	"virtual-drive/internal/fingerprint"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/startup"
	"virtual-drive/internal/workers"
)

// maxWorkers bounds the computed worker count, as the server does.
const maxWorkers = 16

// index is an opened store plus an indexer over the configured roots.
type index struct {
	db  *database.Database
	idx *indexer.Indexer
}

func (ix *index) Close() error {
	ix.idx.Stop()
	return ix.db.Close()
}

// fingerprintOptions returns the fingerprint settings shared by the CLI and
// the server defaults.
func fingerprintOptions(v *viper.Viper) fingerprint.Options {
	opts := fingerprint.DefaultOptions()
	if n := v.GetInt64("sketch-threshold"); n > 0 {
		opts.Threshold = n
	}
	if n := v.GetInt64("sketch-block-size"); n > 0 {
		opts.BlockSize = n
	}
	return opts
}

// openIndex opens the configured database and builds an indexer over the
// configured roots. Background loops are never started.
func openIndex(ctx context.Context, v *viper.Viper) (*index, error) {
	rootList := v.GetString("roots")
	if rootList == "" {
		return nil, errors.New("no roots configured (use --roots or VD_ROOTS)")
	}
	roots, err := startup.ParseRoots(rootList)
	if err != nil {
		return nil, err
	}

	walker := indexer.DefaultParallelWalkerConfig()
	walker.NumWorkers = v.GetInt("workers")
	if walker.NumWorkers <= 0 {
		walker.NumWorkers = workers.ForIO(maxWorkers)
	}
	walker.SkipHidden = v.GetBool("skip-hidden")

	db, err := database.New(ctx, v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	idx := indexer.New(db, indexer.Config{
		Roots:       roots,
		Fingerprint: fingerprintOptions(v),
		Walker:      walker,
	})
	return &index{db: db, idx: idx}, nil
}

package handlers

import (
	"virtual-drive/internal/database"
	"virtual-drive/internal/dedup"
	"virtual-drive/internal/indexer"
	"virtual-drive/internal/startup"
	"virtual-drive/internal/thumbnail"
)

// Handlers holds the services the HTTP API calls into.
type Handlers struct {
	db           *database.Database
	indexer      *indexer.Indexer
	dedup        *dedup.Service
	thumbs       *thumbnail.Generator
	countDirSize bool
}

// New wires the handlers to their services.
func New(db *database.Database, idx *indexer.Indexer, svc *dedup.Service, thumbs *thumbnail.Generator, config *startup.Config) *Handlers {
	return &Handlers{
		db:           db,
		indexer:      idx,
		dedup:        svc,
		thumbs:       thumbs,
		countDirSize: config.CountDirSize,
	}
}

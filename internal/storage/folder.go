package storage

import (
	"context"
	"log"
	"time"

	"challan-backend/internal/apperr"
	"challan-backend/internal/config"
	"challan-backend/internal/models"
)

const cleanupTimeout = 10 * time.Second

// FolderPersister writes documents into a resolved folder of a Tree.
// Failures are reported as they are; there is no fallback to sharing.
type FolderPersister struct {
	tree     Tree
	resolver *FolderResolver
	segments []string
}

func NewFolderPersister(tree Tree, resolver *FolderResolver, segments []string) *FolderPersister {
	return &FolderPersister{tree: tree, resolver: resolver, segments: segments}
}

func (p *FolderPersister) Strategy() string { return config.StrategyFolder }

func (p *FolderPersister) Save(ctx context.Context, doc *models.ChallanDocument, suggestedName string) (*models.SaveResult, error) {
	const op = "storage.folder.save"

	name := suggestedName
	if name == "" {
		name = doc.Filename
	}

	dir, err := p.resolver.Resolve(ctx, p.segments)
	if err != nil {
		return nil, apperr.Wrap(apperr.WriteFailure, op, err)
	}

	entry, err := p.tree.CreateFile(ctx, dir, name, doc.MimeType)
	if err != nil {
		if !apperr.Is(err, apperr.PermissionDenied) {
			p.resolver.Invalidate(ctx)
		}
		return nil, apperr.Wrap(apperr.WriteFailure, op, err)
	}

	if err := p.tree.Write(ctx, entry.URI, doc.Bytes); err != nil {
		// the request may already be cancelled; the reserved entry must still go
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if rmErr := p.tree.Remove(rmCtx, entry.URI); rmErr != nil {
			log.Printf("[Storage] Failed to remove partial file %s: %v", entry.URI, rmErr)
		}
		return nil, apperr.Wrap(apperr.WriteFailure, op, err)
	}

	log.Printf("[Storage] Saved %s (%d bytes)", entry.URI, len(doc.Bytes))
	return &models.SaveResult{URI: entry.URI, Filename: entry.Name, MimeType: doc.MimeType}, nil
}

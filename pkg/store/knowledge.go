package store

import (
	"context"

	"github.com/assessment-platform/enginer/ent"
	"github.com/assessment-platform/enginer/ent/knowledgedocument"
)

// NewKnowledgeDocument is the input to CreateKnowledgeDocument.
type NewKnowledgeDocument struct {
	ID        string
	Topic     string
	Content   string
	Embedding []float32
}

// CreateKnowledgeDocument ingests a reference document for a topic.
func (s *Store) CreateKnowledgeDocument(ctx context.Context, in NewKnowledgeDocument) (*ent.KnowledgeDocument, error) {
	var out *ent.KnowledgeDocument
	err := s.withRetry(ctx, func(ctx context.Context) error {
		b := s.db.KnowledgeDocument.Create().
			SetID(in.ID).
			SetTopic(in.Topic).
			SetContent(in.Content)
		if in.Embedding != nil {
			b.SetEmbedding(in.Embedding)
		}
		row, err := b.Save(ctx)
		if err != nil {
			return err
		}
		out = row
		return nil
	})
	return out, mapErr(err)
}

// ListKnowledgeDocumentsByTopic returns the reference material stored for a
// topic. No code in this repository calls it; question generation is not
// grounded on these documents.
func (s *Store) ListKnowledgeDocumentsByTopic(ctx context.Context, topic string) ([]*ent.KnowledgeDocument, error) {
	var out []*ent.KnowledgeDocument
	err := s.withRetry(ctx, func(ctx context.Context) error {
		rows, err := s.db.KnowledgeDocument.Query().Where(knowledgedocument.Topic(topic)).All(ctx)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, mapErr(err)
}

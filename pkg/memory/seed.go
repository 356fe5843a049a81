package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-counseling-be/internal/entity"
)

var defaultProfilerSkills = []string{
	"Open with broad, low-pressure questions before narrowing to specifics.",
	"Reflect the client's own wording back when probing a sensitive area.",
	"Ask about daily routines to surface stressors the client has normalized.",
}

var defaultTherapistSkills = []string{
	"Anchor each exchange to the agreed core topic before exploring tangents.",
	"Summarize the client's automatic thought in their own words before challenging it.",
	"Close each stage by asking the client to restate what they take away from it.",
}

// SeedDefaultSkills inserts a starter skill set into any skill collection
// that is still empty, so first-run agents have something to retrieve.
// Already-populated collections are left untouched.
func (s *Synchronizer) SeedDefaultSkills(ctx context.Context) error {
	if err := s.seedCollection(ctx, CollectionProfilerSkills, entity.OwnerProfiler, "", defaultProfilerSkills); err != nil {
		return err
	}
	for _, therapyType := range s.therapyTypes {
		collection := TherapistSkillCollection(therapyType)
		if err := s.seedCollection(ctx, collection, entity.OwnerTherapist, therapyType, defaultTherapistSkills); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) seedCollection(ctx context.Context, collection, ownerRole, therapyType string, contents []string) error {
	existing, err := s.primary.List(ctx, collection)
	if err != nil {
		return &StorageError{Store: "primary", Collection: collection, Op: "list", Err: err}
	}
	if len(existing) > 0 {
		return nil
	}

	for i, content := range contents {
		skill := entity.SkillMemory{
			Id:          fmt.Sprintf("%s_seed_%d", collection, i+1),
			Content:     content,
			OwnerRole:   ownerRole,
			TherapyType: therapyType,
			CreatedAt:   time.Now(),
		}
		payload, err := json.Marshal(skill)
		if err != nil {
			return err
		}
		doc := entity.Document{Id: skill.Id, Data: payload}
		if err := s.primary.Add(ctx, collection, doc); err != nil {
			return &StorageError{Store: "primary", Collection: collection, Op: "add", Err: err}
		}
		if err := s.mirrorDocument(ctx, collection, doc); err != nil {
			s.log.Warn("memory.synchronizer", "seed skill not mirrored", map[string]interface{}{
				"collection": collection,
				"doc_id":     skill.Id,
				"error":      err.Error(),
			})
		}
	}
	s.log.Info("memory.synchronizer", "seeded default skills", map[string]interface{}{
		"collection": collection,
		"count":      len(contents),
	})
	return nil
}

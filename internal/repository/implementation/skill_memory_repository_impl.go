package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/embedding"
	"ai-counseling-be/pkg/memory"
	"ai-counseling-be/pkg/utils"
)

// SkillMemoryRepositoryImpl reads and writes skill memories across both
// stores. The primary store is authoritative; the secondary one serves
// similarity retrieval.
type SkillMemoryRepositoryImpl struct {
	primary   contract.DocumentStore
	secondary contract.VectorStore
	embedder  embedding.Provider
	log       logger.ILogger
}

func NewSkillMemoryRepository(
	primary contract.DocumentStore,
	secondary contract.VectorStore,
	embedder embedding.Provider,
	log logger.ILogger,
) contract.SkillMemoryRepository {
	return &SkillMemoryRepositoryImpl{
		primary:   primary,
		secondary: secondary,
		embedder:  embedder,
		log:       log,
	}
}

func skillCollection(q contract.SkillQuery) string {
	if q.OwnerRole == entity.OwnerTherapist {
		return memory.TherapistSkillCollection(q.TherapyType)
	}
	return memory.CollectionProfilerSkills
}

func (r *SkillMemoryRepositoryImpl) Get(ctx context.Context, q contract.SkillQuery) ([]entity.SkillMemory, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	collection := skillCollection(q)
	if err := r.primary.EnsureCollection(ctx, collection); err != nil {
		return nil, err
	}

	if q.QueryText == "" {
		docs, err := r.primary.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		if len(docs) > limit {
			docs = docs[:limit]
		}
		skills := make([]entity.SkillMemory, 0, len(docs))
		for _, doc := range docs {
			var skill entity.SkillMemory
			if err := json.Unmarshal(doc.Data, &skill); err != nil {
				r.log.Warn("repository.skill_memory", "malformed skill payload skipped", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
				continue
			}
			skills = append(skills, skill)
		}
		return skills, nil
	}

	if skills, err := r.searchSimilar(ctx, collection, q.QueryText, limit); err == nil {
		return skills, nil
	} else {
		r.log.Warn("repository.skill_memory", "similarity search unavailable, falling back to term scan", map[string]interface{}{
			"collection": collection,
			"error":      err.Error(),
		})
	}
	return r.scanByTerms(ctx, collection, q.QueryText, limit)
}

func (r *SkillMemoryRepositoryImpl) searchSimilar(ctx context.Context, collection, queryText string, limit int) ([]entity.SkillMemory, error) {
	vector, err := r.embedder.Generate(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if vector == nil {
		return nil, fmt.Errorf("embed query: empty vector")
	}

	scored, err := r.secondary.Search(ctx, collection, vector, nil, limit)
	if err != nil {
		return nil, err
	}
	skills := make([]entity.SkillMemory, 0, len(scored))
	for _, s := range scored {
		skills = append(skills, vectorDocToSkill(s.Document))
	}
	return skills, nil
}

// scanByTerms ranks stored skills by bag-of-words cosine over their content.
func (r *SkillMemoryRepositoryImpl) scanByTerms(ctx context.Context, collection, queryText string, limit int) ([]entity.SkillMemory, error) {
	docs, err := r.secondary.List(ctx, collection)
	if err != nil {
		return nil, err
	}

	type rankedSkill struct {
		skill entity.SkillMemory
		score float64
	}
	ranked := make([]rankedSkill, 0, len(docs))
	for _, doc := range docs {
		score := utils.BagOfWordsCosine(queryText, doc.Content)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, rankedSkill{skill: vectorDocToSkill(doc), score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	skills := make([]entity.SkillMemory, 0, len(ranked))
	for _, rs := range ranked {
		skills = append(skills, rs.skill)
	}
	return skills, nil
}

func (r *SkillMemoryRepositoryImpl) Put(ctx context.Context, skill *entity.SkillMemory) error {
	collection := skillCollection(contract.SkillQuery{
		OwnerRole:   skill.OwnerRole,
		TherapyType: skill.TherapyType,
	})
	if err := r.primary.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	if err := r.secondary.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = time.Now()
	}

	if skill.Embedding == nil {
		vector, err := r.embedder.Generate(ctx, skill.Content)
		if err != nil {
			r.log.Warn("repository.skill_memory", "embedding failed, storing skill without vector", map[string]interface{}{
				"collection": collection,
				"doc_id":     skill.Id,
				"error":      err.Error(),
			})
		} else {
			skill.Embedding = vector
		}
	}

	payload, err := json.Marshal(skill)
	if err != nil {
		return err
	}
	if err := r.primary.Update(ctx, collection, skill.Id, entity.Document{Id: skill.Id, Data: payload}); err != nil {
		return err
	}

	metadata := map[string]string{"owner_role": skill.OwnerRole}
	if skill.TherapyType != "" {
		metadata["therapy_type"] = skill.TherapyType
	}
	return r.secondary.Add(ctx, collection, entity.VectorDocument{
		Id:        skill.Id,
		Content:   skill.Content,
		Metadata:  metadata,
		Embedding: skill.Embedding,
		UpdatedAt: time.Now(),
	})
}

func vectorDocToSkill(doc entity.VectorDocument) entity.SkillMemory {
	return entity.SkillMemory{
		Id:          doc.Id,
		Content:     doc.Content,
		OwnerRole:   doc.Metadata["owner_role"],
		TherapyType: doc.Metadata["therapy_type"],
		Embedding:   doc.Embedding,
		CreatedAt:   doc.UpdatedAt,
	}
}

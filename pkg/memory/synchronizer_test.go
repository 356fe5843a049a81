package memory_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	memstore "ai-counseling-be/internal/repository/memory"
	"ai-counseling-be/pkg/memory"
)

type stubEmbedder struct {
	failFor map[string]bool
	calls   int
}

func (s *stubEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.failFor[text] {
		return nil, errors.New("embedding backend unavailable")
	}
	return []float32{0.6, 0.8}, nil
}

func newSynchronizer(t *testing.T, embedder *stubEmbedder) (*memory.Synchronizer, *fixtures) {
	t.Helper()
	f := &fixtures{
		primary:   memstore.NewDocumentStore(),
		secondary: memstore.NewVectorStore(),
		index:     memstore.NewVectorIndex(),
	}
	sync := memory.NewSynchronizer(
		f.primary, f.secondary, f.index,
		embedder, logger.NewNopLogger(),
		[]string{"cognitive_behavioral"},
	)
	return sync, f
}

type fixtures struct {
	primary   contract.DocumentStore
	secondary contract.VectorStore
	index     contract.VectorIndex
}

func skillDoc(t *testing.T, id, content string) entity.Document {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"id": id, "content": content})
	require.NoError(t, err)
	return entity.Document{Id: id, Data: payload}
}

func TestReconcileBothEmptyInitializes(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.ModeInitialize, summary.Mode)
	assert.Zero(t, summary.Synced)

	names, err := f.primary.Collections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "profiler_skills")
	assert.Contains(t, names, "therapist_cognitive_behavioral_skills")
	assert.Contains(t, names, "medical_records")
	assert.Contains(t, names, "student_vectors")
}

func TestReconcileRebuildDerivesMetadata(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.primary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s1", "X")))

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.ModeRebuild, summary.Mode)
	assert.Equal(t, 1, summary.Synced)

	docs, err := f.secondary.List(ctx, "profiler_skills")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "s1", docs[0].Id)
	assert.Equal(t, "profiler", docs[0].Metadata["owner_role"])
	assert.NotNil(t, docs[0].Embedding)
}

func TestReconcileRebuildIsIdempotent(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.primary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s1", "X")))

	_, err := sync.Reconcile(ctx)
	require.NoError(t, err)

	// Second pass: secondary is now populated, so mode flips to
	// incremental and inserts nothing.
	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.ModeIncremental, summary.Mode)
	assert.Zero(t, summary.Synced)
	assert.Equal(t, 1, summary.Skipped)

	docs, err := f.secondary.List(ctx, "profiler_skills")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestReconcileRebuildCompleteness(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.primary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.primary.EnsureCollection(ctx, "therapist_cognitive_behavioral_skills"))
	total := 0
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("p%d", i)
		require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, id, "skill "+id)))
		total++
	}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("t%d", i)
		require.NoError(t, f.primary.Add(ctx, "therapist_cognitive_behavioral_skills", skillDoc(t, id, "skill "+id)))
		total++
	}

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, summary.Synced)

	mirrored := 0
	for _, collection := range []string{"profiler_skills", "therapist_cognitive_behavioral_skills"} {
		docs, err := f.secondary.List(ctx, collection)
		require.NoError(t, err)
		mirrored += len(docs)
	}
	assert.Equal(t, total, mirrored)
}

func TestReconcileRebuildStoresDocWithoutVectorOnEmbedFailure(t *testing.T) {
	embedder := &stubEmbedder{failFor: map[string]bool{"unembeddable": true}}
	sync, f := newSynchronizer(t, embedder)
	ctx := context.Background()

	require.NoError(t, f.primary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s1", "unembeddable")))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s2", "fine")))

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Synced)
	assert.Zero(t, summary.Failed)

	broken, err := f.secondary.Get(ctx, "profiler_skills", "s1")
	require.NoError(t, err)
	require.NotNil(t, broken)
	assert.Nil(t, broken.Embedding)

	fine, err := f.secondary.Get(ctx, "profiler_skills", "s2")
	require.NoError(t, err)
	require.NotNil(t, fine)
	assert.NotNil(t, fine.Embedding)
}

func TestReconcileReverseExport(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.secondary.EnsureCollection(ctx, "student_vectors"))
	require.NoError(t, f.secondary.Add(ctx, "student_vectors", entity.VectorDocument{
		Id:      "v1",
		Content: "prefers concrete examples",
		Metadata: map[string]string{
			"subject_id": "student-1",
			"record_id":  "record-9",
		},
		Embedding: []float32{0.6, 0.8},
	}))

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.ModeReverseExport, summary.Mode)
	assert.Equal(t, 1, summary.Synced)

	doc, err := f.primary.Get(ctx, "student_vectors", "v1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(doc.Data, &fields))
	assert.Equal(t, "student-1", fields["subject_id"])

	entry, err := f.index.Get(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "student-1", entry.SubjectId)
	assert.Equal(t, "record-9", entry.RecordId)
}

func TestReconcileIncrementalOnlyInsertsMissing(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, f.primary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s1", "already mirrored")))
	require.NoError(t, f.primary.Add(ctx, "profiler_skills", skillDoc(t, "s2", "missing from secondary")))
	require.NoError(t, f.secondary.EnsureCollection(ctx, "profiler_skills"))
	require.NoError(t, f.secondary.Add(ctx, "profiler_skills", entity.VectorDocument{
		Id: "s1", Content: "already mirrored",
		Metadata: map[string]string{"owner_role": "profiler"},
	}))
	// Secondary-only document: never pruned.
	require.NoError(t, f.secondary.Add(ctx, "profiler_skills", entity.VectorDocument{
		Id: "orphan", Content: "secondary only",
		Metadata: map[string]string{"owner_role": "profiler"},
	}))

	summary, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, memory.ModeIncremental, summary.Mode)
	assert.Equal(t, 1, summary.Synced)
	assert.Equal(t, 1, summary.Skipped)

	docs, err := f.secondary.List(ctx, "profiler_skills")
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestSeedDefaultSkillsOnlyWhenEmpty(t *testing.T) {
	sync, f := newSynchronizer(t, &stubEmbedder{})
	ctx := context.Background()

	_, err := sync.Reconcile(ctx)
	require.NoError(t, err)
	require.NoError(t, sync.SeedDefaultSkills(ctx))

	seeded, err := f.primary.List(ctx, "profiler_skills")
	require.NoError(t, err)
	require.NotEmpty(t, seeded)

	// A second seeding pass leaves the collection unchanged.
	require.NoError(t, sync.SeedDefaultSkills(ctx))
	again, err := f.primary.List(ctx, "profiler_skills")
	require.NoError(t, err)
	assert.Len(t, again, len(seeded))

	mirrored, err := f.secondary.List(ctx, "therapist_cognitive_behavioral_skills")
	require.NoError(t, err)
	assert.NotEmpty(t, mirrored)
}

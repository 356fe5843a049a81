package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-counseling-be/internal/entity"
	"ai-counseling-be/internal/pkg/logger"
	"ai-counseling-be/internal/repository/contract"
	"ai-counseling-be/pkg/embedding"
)

// Reconciliation modes, chosen from the empty/populated state of the two
// stores at startup.
const (
	ModeInitialize    = "initialize"
	ModeRebuild       = "rebuild"
	ModeReverseExport = "reverse_export"
	ModeIncremental   = "incremental"
)

// Summary aggregates one reconciliation pass. Per-document failures are
// counted, not raised, so a pass always ends with a summary.
type Summary struct {
	Mode    string `json:"mode"`
	Synced  int    `json:"synced"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Synchronizer keeps the primary document store and the secondary vector
// store consistent. It runs once at startup, before traffic is served;
// drift accumulated after that is repaired at the next startup.
type Synchronizer struct {
	primary   contract.DocumentStore
	secondary contract.VectorStore
	index     contract.VectorIndex
	embedder  embedding.Provider
	log       logger.ILogger

	therapyTypes []string
}

func NewSynchronizer(
	primary contract.DocumentStore,
	secondary contract.VectorStore,
	index contract.VectorIndex,
	embedder embedding.Provider,
	log logger.ILogger,
	therapyTypes []string,
) *Synchronizer {
	return &Synchronizer{
		primary:      primary,
		secondary:    secondary,
		index:        index,
		embedder:     embedder,
		log:          log,
		therapyTypes: therapyTypes,
	}
}

// Reconcile inspects both stores and runs the applicable mode. It is
// idempotent: a second pass over unchanged stores inserts nothing.
func (s *Synchronizer) Reconcile(ctx context.Context) (*Summary, error) {
	collections := AllCollections(s.therapyTypes)
	for _, name := range collections {
		if err := s.primary.EnsureCollection(ctx, name); err != nil {
			return nil, &SyncError{Mode: "ensure", Err: err}
		}
		if err := s.secondary.EnsureCollection(ctx, name); err != nil {
			return nil, &SyncError{Mode: "ensure", Err: err}
		}
	}

	primaryEmpty, err := s.primary.Empty(ctx)
	if err != nil {
		return nil, &SyncError{Mode: "detect", Err: err}
	}
	secondaryEmpty, err := s.secondary.Empty(ctx)
	if err != nil {
		return nil, &SyncError{Mode: "detect", Err: err}
	}

	var summary *Summary
	switch {
	case primaryEmpty && secondaryEmpty:
		summary = &Summary{Mode: ModeInitialize}
	case !primaryEmpty && secondaryEmpty:
		summary, err = s.rebuild(ctx, collections)
	case primaryEmpty && !secondaryEmpty:
		summary, err = s.reverseExport(ctx, collections)
	default:
		summary, err = s.syncIncremental(ctx, collections)
	}
	if err != nil {
		return summary, err
	}

	s.log.Info("memory.synchronizer", "reconciliation complete", map[string]interface{}{
		"mode":    summary.Mode,
		"synced":  summary.Synced,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	return summary, nil
}

// rebuild recreates every secondary collection from the primary store. An
// embedding is generated on demand; on embedding failure the document is
// stored without a vector rather than failing the pass.
func (s *Synchronizer) rebuild(ctx context.Context, collections []string) (*Summary, error) {
	summary := &Summary{Mode: ModeRebuild}
	for _, collection := range collections {
		docs, err := s.primary.List(ctx, collection)
		if err != nil {
			return summary, &SyncError{Mode: ModeRebuild, Err: err}
		}
		for _, doc := range docs {
			if err := s.mirrorDocument(ctx, collection, doc); err != nil {
				summary.Failed++
				s.log.Warn("memory.synchronizer", "document skipped during rebuild", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
				continue
			}
			summary.Synced++
		}
	}
	return summary, nil
}

// reverseExport recovers the primary store from the secondary one and
// reconstructs the vector index from secondary metadata.
func (s *Synchronizer) reverseExport(ctx context.Context, collections []string) (*Summary, error) {
	summary := &Summary{Mode: ModeReverseExport}
	var indexEntries []entity.VectorIndexEntry

	for _, collection := range collections {
		docs, err := s.secondary.List(ctx, collection)
		if err != nil {
			return summary, &SyncError{Mode: ModeReverseExport, Err: err}
		}
		for _, doc := range docs {
			payload, err := exportPayload(doc)
			if err != nil {
				summary.Failed++
				s.log.Warn("memory.synchronizer", "document skipped during reverse export", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
				continue
			}
			if err := s.primary.Update(ctx, collection, doc.Id, entity.Document{Id: doc.Id, Data: payload}); err != nil {
				summary.Failed++
				s.log.Warn("memory.synchronizer", "document skipped during reverse export", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
				continue
			}
			summary.Synced++

			if collection == CollectionStudentVectors {
				indexEntries = append(indexEntries, entity.VectorIndexEntry{
					VectorId:  doc.Id,
					SubjectId: doc.Metadata["subject_id"],
					RecordId:  doc.Metadata["record_id"],
					UpdatedAt: time.Now(),
				})
			}
		}
	}

	if err := s.index.Replace(ctx, indexEntries); err != nil {
		return summary, &SyncError{Mode: ModeReverseExport, Err: err}
	}
	return summary, nil
}

// syncIncremental diffs document ids per collection and inserts into the
// secondary store whatever the primary has that it lacks. The primary is
// authoritative; the secondary is never pruned to match it.
func (s *Synchronizer) syncIncremental(ctx context.Context, collections []string) (*Summary, error) {
	summary := &Summary{Mode: ModeIncremental}
	for _, collection := range collections {
		primaryDocs, err := s.primary.List(ctx, collection)
		if err != nil {
			return summary, &SyncError{Mode: ModeIncremental, Err: err}
		}
		secondaryDocs, err := s.secondary.List(ctx, collection)
		if err != nil {
			return summary, &SyncError{Mode: ModeIncremental, Err: err}
		}

		present := make(map[string]struct{}, len(secondaryDocs))
		for _, doc := range secondaryDocs {
			present[doc.Id] = struct{}{}
		}

		for _, doc := range primaryDocs {
			if _, ok := present[doc.Id]; ok {
				summary.Skipped++
				continue
			}
			if err := s.mirrorDocument(ctx, collection, doc); err != nil {
				summary.Failed++
				s.log.Warn("memory.synchronizer", "document skipped during incremental sync", map[string]interface{}{
					"collection": collection,
					"doc_id":     doc.Id,
					"error":      err.Error(),
				})
				continue
			}
			summary.Synced++
		}
	}
	return summary, nil
}

// mirrorDocument writes one primary document into the secondary store,
// deriving collection-specific metadata and embedding its content. A failed
// embedding stores the document without a vector.
func (s *Synchronizer) mirrorDocument(ctx context.Context, collection string, doc entity.Document) error {
	fields := map[string]interface{}{}
	if err := json.Unmarshal(doc.Data, &fields); err != nil {
		return &StorageError{Store: "primary", Collection: collection, Op: "decode", Err: err}
	}

	content := documentContent(fields)
	metadata := deriveMetadata(collection, fields)

	vector := embeddedVector(fields)
	if vector == nil && content != "" && s.embedder != nil {
		generated, err := s.embedder.Generate(ctx, content)
		if err != nil {
			s.log.Warn("memory.synchronizer", "embedding failed, storing without vector", map[string]interface{}{
				"collection": collection,
				"doc_id":     doc.Id,
				"error":      err.Error(),
			})
		} else {
			vector = generated
		}
	}

	err := s.secondary.Add(ctx, collection, entity.VectorDocument{
		Id:        doc.Id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vector,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return &StorageError{Store: "secondary", Collection: collection, Op: "add", Err: err}
	}

	if collection == CollectionStudentVectors {
		entry := entity.VectorIndexEntry{
			VectorId:  doc.Id,
			SubjectId: metadata["subject_id"],
			RecordId:  metadata["record_id"],
			UpdatedAt: time.Now(),
		}
		if err := s.index.Put(ctx, entry); err != nil {
			return &StorageError{Store: "index", Collection: collection, Op: "put", Err: err}
		}
	}
	return nil
}

// deriveMetadata maps a collection's documents onto the flat metadata the
// secondary store filters on.
func deriveMetadata(collection string, fields map[string]interface{}) map[string]string {
	metadata := map[string]string{}
	switch {
	case collection == CollectionProfilerSkills:
		metadata["owner_role"] = entity.OwnerProfiler
	case strings.HasPrefix(collection, "therapist_") && strings.HasSuffix(collection, "_skills"):
		metadata["owner_role"] = entity.OwnerTherapist
		metadata["therapy_type"] = strings.TrimSuffix(strings.TrimPrefix(collection, "therapist_"), "_skills")
	case collection == CollectionMedicalRecords:
		metadata["subject_id"] = stringField(fields, "subject_id")
		metadata["status"] = stringField(fields, "status")
	case collection == CollectionStudentVectors:
		metadata["subject_id"] = stringField(fields, "subject_id")
		metadata["record_id"] = stringField(fields, "record_id")
	}
	return metadata
}

// documentContent picks the text worth embedding out of a decoded payload.
func documentContent(fields map[string]interface{}) string {
	for _, key := range []string{"content", "feature_text", "process_summary"} {
		if v := stringField(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func embeddedVector(fields map[string]interface{}) []float32 {
	raw, ok := fields["embedding"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	vector := make([]float32, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil
		}
		vector = append(vector, float32(f))
	}
	return vector
}

func stringField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

// exportPayload serializes a secondary document back into a primary payload
// during reverse export.
func exportPayload(doc entity.VectorDocument) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"id":      doc.Id,
		"content": doc.Content,
	}
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	if doc.Embedding != nil {
		payload["embedding"] = doc.Embedding
	}
	return json.Marshal(payload)
}

// Package memory keeps the primary document store and the secondary vector
// store consistent: collection naming, startup reconciliation, and default
// skill seeding.
package memory

import "fmt"

const (
	CollectionProfilerSkills = "profiler_skills"
	CollectionMedicalRecords = "medical_records"
	CollectionStudentVectors = "student_vectors"
)

// TherapistSkillCollection returns the per-modality therapist skill
// collection name, e.g. "therapist_cognitive_behavioral_skills".
func TherapistSkillCollection(therapyType string) string {
	return fmt.Sprintf("therapist_%s_skills", therapyType)
}

// AllCollections lists every collection both stores must hold, given the
// configured therapy modalities.
func AllCollections(therapyTypes []string) []string {
	names := []string{CollectionProfilerSkills}
	for _, t := range therapyTypes {
		names = append(names, TherapistSkillCollection(t))
	}
	return append(names, CollectionMedicalRecords, CollectionStudentVectors)
}

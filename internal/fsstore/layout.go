package fsstore

import (
	"fmt"
	"path/filepath"
	"time"
)

// Path builders for the rigid directory layout under a single
// memory_base_path. This is the engine's external filesystem contract —
// the shapes here must not drift once published.

func (s *Store) VerbatimPath(userID string, at time.Time, slug string) string {
	return filepath.Join(s.base, "verbatim", userID,
		at.UTC().Format("2006"), at.UTC().Format("01"), at.UTC().Format("02"),
		fmt.Sprintf("%s_%s.md", at.UTC().Format("15_04_05"), slug))
}

func (s *Store) VerbatimUserDir(userID string) string {
	return filepath.Join(s.base, "verbatim", userID)
}

func (s *Store) NotePath(at time.Time, slug string) string {
	return filepath.Join(s.base, "notes",
		at.UTC().Format("2006"), at.UTC().Format("01"), at.UTC().Format("02"),
		fmt.Sprintf("%s_%s.md", at.UTC().Format("15_04_05"), slug))
}

func (s *Store) NotesDir() string { return filepath.Join(s.base, "notes") }

func (s *Store) WorkingPath(name string) string { return filepath.Join(s.base, "working", name) }

func (s *Store) EpisodicPath(name string) string { return filepath.Join(s.base, "episodic", name) }

func (s *Store) SemanticPath(name string) string { return filepath.Join(s.base, "semantic", name) }

func (s *Store) CorePath(component string) string {
	return filepath.Join(s.base, "core", component+".md")
}

func (s *Store) CoreVersionsPath(component string) string {
	return filepath.Join(s.base, "core", ".versions", component+"_history.json")
}

func (s *Store) LibraryDocDir(docID string) string {
	return filepath.Join(s.base, "library", "documents", docID)
}

func (s *Store) LibraryDocContentPath(docID string) string {
	return filepath.Join(s.LibraryDocDir(docID), "content.md")
}

func (s *Store) LibraryDocMetadataPath(docID string) string {
	return filepath.Join(s.LibraryDocDir(docID), "metadata.json")
}

func (s *Store) LibraryDocumentsDir() string { return filepath.Join(s.base, "library", "documents") }

func (s *Store) LibraryAccessLogPath() string {
	return filepath.Join(s.base, "library", "access_log.json")
}

func (s *Store) LibraryImportanceMapPath() string {
	return filepath.Join(s.base, "library", "importance_map.json")
}

func (s *Store) LibraryIndexPath() string { return filepath.Join(s.base, "library", "index.json") }

func (s *Store) PeopleDir(userID string) string { return filepath.Join(s.base, "people", userID) }

func (s *Store) ProfilePath(userID string) string {
	return filepath.Join(s.PeopleDir(userID), "profile.md")
}

func (s *Store) PreferencesPath(userID string) string {
	return filepath.Join(s.PeopleDir(userID), "preferences.md")
}

func (s *Store) SessionMetadataPath() string { return filepath.Join(s.base, ".session_metadata.json") }

func (s *Store) ConsolidationSchedulePath() string {
	return filepath.Join(s.base, ".consolidation_schedule.json")
}

func (s *Store) IndexConfigPath() string { return filepath.Join(s.base, ".memory_index_config.json") }

func (s *Store) TaskQueueJournalPath() string { return filepath.Join(s.base, ".task_queue.json") }

func (s *Store) ReflectionsPath() string { return filepath.Join(s.base, "reflections.json") }

func (s *Store) LockPath() string { return filepath.Join(s.base, ".lock") }

func (s *Store) Base() string { return s.base }

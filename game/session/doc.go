// Package session keeps live matches in memory and on disk.
//
// Manager maps short hex IDs to service.Session values. Lookups are
// case-insensitive. A session owns one match.Controller, built from a
// service.MatchSpec holding the rules, seed and team names.
//
// Persistence:
//
// A match is deterministic for a given spec, so FilePersistence stores only
// the spec and the number of steps taken. Loading rebuilds the controller and
// replays those steps, which reproduces the board, the score and the full
// event history.
//
//	fp, err := session.NewFilePersistence("sessions", logger)
//	manager := session.NewManagerWithPersistence(fp, session.WithLogger(logger))
//	if err := manager.LoadPersistedSessions(); err != nil {
//		return err
//	}
//
// Sessions idle past a TTL can be dropped from memory with
// CleanupExpiredSessions; their files stay and are reloaded on the next Get.
package session

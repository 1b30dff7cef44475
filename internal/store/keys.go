package store

// Key vocabulary for the persisted collections. Everything the core
// reads or writes lives under one of these.
const (
	// KeyCurrentSession holds the in-progress session mirror. Overwritten
	// on every mutation, deleted on submit.
	KeyCurrentSession = "session:current"
	// KeyHistory holds the append-only sequence of completed sessions.
	KeyHistory = "history"
	// KeyChapterProgress maps "subject:chapter" to its aggregate.
	KeyChapterProgress = "progress:chapters"
	// KeySubjectProgress maps subject to its rollup.
	KeySubjectProgress = "progress:subjects"
	// KeyAchievements maps achievement ID to its unlocked record.
	KeyAchievements = "achievements"
)

// BankKey returns the key holding a subject's question bank.
func BankKey(subject string) string {
	return "bank:" + subject
}

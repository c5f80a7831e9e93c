package config

type WorkerKeyStruct struct {
	// AttemptDeadlineIndex is a Redis sorted set of in-progress attempt IDs
	// scored by their deadline Unix timestamp. The expiry worker polls it to
	// force-expire overdue attempts.
	AttemptDeadlineIndex string
}

var WorkerKey = &WorkerKeyStruct{
	AttemptDeadlineIndex: "attempt_deadlines",
}

// Package storage keeps the records of submitted prime counting jobs so a
// client can poll for the result after POST /jobs returned a handle.
//
// Two implementations of Store are provided:
//
//	MemoryStore  map guarded by a RWMutex; records are deep-copied on the
//	             way in and out, so callers never share state with it
//	SQLiteStore  one table in a SQLite file (modernc.org/sqlite, no cgo);
//	             ranges and distribution are JSON columns and totals are
//	             decimal text so arbitrarily large counts round-trip
//
// The coordinator picks SQLiteStore when PRIMES_DB_PATH is set and
// MemoryStore otherwise. Records are written three times per job: at
// submission (pending), at dispatch (running) and on completion or failure.
//
// Storage is bookkeeping only. A job that was running when the coordinator
// stopped stays in the running state; nothing here resumes work.
package storage

package db

import (
	"strings"

	"github.com/orsinium-labs/enum"
)

// Kind represents the database backend a process runs against.
type Kind enum.Member[string]

var (
	// KindEmbedded is the single-file SQLite backend used for local
	// development.
	KindEmbedded = Kind{Value: "embedded"}
	// KindClientServer is the networked PostgreSQL backend used in
	// production.
	KindClientServer = Kind{Value: "clientserver"}

	// Kinds is the set of valid backend kinds.
	Kinds = enum.New(KindEmbedded, KindClientServer)
)

// SelectKind decides the backend for the process from the configured
// database URL: a non-empty URL selects the client/server backend, otherwise
// the embedded backend is used.
//
// The decision is made once, inside NewDB, and is immutable for the lifetime
// of the returned DB. Re-reading the environment per call would let a
// process straddle two backends, which is disallowed.
func SelectKind(databaseURL string) Kind {
	if strings.TrimSpace(databaseURL) != "" {
		return KindClientServer
	}
	return KindEmbedded
}

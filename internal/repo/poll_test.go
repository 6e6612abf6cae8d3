package repo_test

import (
	"testing"

	"github.com/pkordes/weekend-poll/internal/repo"
	"github.com/pkordes/weekend-poll/testutil"
)

// TestPgPollRepo runs the shared contract against Postgres inside a
// transaction that is rolled back after every subtest.
//
// Requires TEST_DATABASE_URL; skipped otherwise.
func TestPgPollRepo(t *testing.T) {
	runPollRepoContract(t, func(t *testing.T) repo.PollRepo {
		return repo.NewPollRepo(testutil.NewTx(t))
	})
}

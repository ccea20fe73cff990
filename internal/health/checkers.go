package health

import (
	"context"
	"fmt"
	"os/exec"
)

// Pinger is the slice of a database pool needed for readiness probing.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database returns a checker that pings the database pool.
func Database(p Pinger) Checker {
	return Checker{
		Name: "database",
		Check: func(ctx context.Context) error {
			return p.Ping(ctx)
		},
	}
}

// Player returns a checker that passes when at least one supported audio
// player binary is on PATH. ffplay and mpg123 are interchangeable here;
// losing both means no audio can come out at all.
func Player(names ...string) Checker {
	return Checker{
		Name: "player",
		Check: func(_ context.Context) error {
			for _, name := range names {
				if _, err := exec.LookPath(name); err == nil {
					return nil
				}
			}
			return fmt.Errorf("none of %v found on PATH", names)
		},
	}
}

// Binaries returns a checker that verifies the external helper programs the
// audio pipeline shells out to (yt-dlp and friends) are all on PATH. The
// lookup runs on every probe so an image rebuild that drops a binary shows up
// without a restart.
func Binaries(names ...string) Checker {
	return Checker{
		Name: "binaries",
		Check: func(_ context.Context) error {
			for _, name := range names {
				if _, err := exec.LookPath(name); err != nil {
					return fmt.Errorf("%s not found on PATH", name)
				}
			}
			return nil
		},
	}
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/agrismart/auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-k string   key directory
//	-b string   key backend ("ec" or "rsa")
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-i int      janitor sweep interval, seconds
//	-g string   Google OAuth client id
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with flags owned by other packages.
// Duration flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-k", "-b", "-t", "-r", "-i", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.KeyDirectory, "k", config.KeyDirectory, "key directory")
	fs.StringVar(&config.KeyBackend, "b", config.KeyBackend, "key backend (ec|rsa)")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	janitorSeconds := fs.Int("i", int(config.JanitorInterval.Seconds()), "janitor interval (in seconds)")

	fs.StringVar(&config.GoogleClientID, "g", config.GoogleClientID, "Google OAuth client id")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
	config.JanitorInterval = time.Duration(*janitorSeconds) * time.Second
}

package config

import (
	"flag"
	"os"
	"time"

	"github.com/avoronov/contenthub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT signing key (base64 or plain text)
//	-t int      access token TTL, minutes
//	-r int      refresh token TTL, minutes
//	-k int      clock skew allowance, seconds
//	-o string   OpenAI API key
//	-n string   Google NLP API key
//
// The function filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-k", "-o", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningKey, "s", config.SigningKey, "JWT signing key")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token TTL (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token TTL (in minutes)")
	clockSkew := fs.Int("k", int(config.ClockSkew.Seconds()), "clock skew allowance (in seconds)")

	fs.StringVar(&config.OpenAIAPIKey, "o", config.OpenAIAPIKey, "OpenAI API key")
	fs.StringVar(&config.GoogleAPIKey, "n", config.GoogleAPIKey, "Google NLP API key")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
	config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Minute
	config.ClockSkew = time.Duration(*clockSkew) * time.Second
}

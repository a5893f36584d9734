package config

import (
	"flag"
	"os"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-i int      online check interval in seconds
//	-t string   access token
//	-n string   own number override
//	-d string   cache database DSN
//	-m string   debug listen address (/metrics, /healthz)
//	-l string   log level
//
// Only the flags listed above are taken from os.Args, so other components
// can share the command line.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i", "-t", "-n", "-d", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.OwnNumber, "n", cfg.OwnNumber, "own phone number (overrides the token claim)")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "local cache database DSN")
	fs.StringVar(&cfg.DebugAddr, "m", cfg.DebugAddr, "debug listen address")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

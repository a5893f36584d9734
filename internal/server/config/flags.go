package config

import (
	"flag"
	"os"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            gRPC bind address (e.g., ":50051")
//	-s string            JWT HMAC secret key
//	-t int               access token validity, minutes
//	-auto-reply bool     echo inbound texts back (use -auto-reply=false to disable)
//	-reply-delay int     auto-reply delay, milliseconds
//	-delivery-delay int  sent-to-delivered delay, milliseconds
//	-l string            log level
//	-token-for string    print a token for this number and exit
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-t", "-auto-reply", "-reply-delay", "-delivery-delay", "-l", "-token-for"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	fs.BoolVar(&config.AutoReply, "auto-reply", config.AutoReply, "echo inbound messages back")
	replyDelay := fs.Int("reply-delay", int(config.AutoReplyDelay.Milliseconds()), "auto-reply delay (in milliseconds)")
	deliveryDelay := fs.Int("delivery-delay", int(config.DeliveryDelay.Milliseconds()), "delivery simulation delay (in milliseconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.TokenFor, "token-for", config.TokenFor, "print an access token for this number and exit")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.AutoReplyDelay = time.Duration(*replyDelay) * time.Millisecond
	config.DeliveryDelay = time.Duration(*deliveryDelay) * time.Millisecond
}

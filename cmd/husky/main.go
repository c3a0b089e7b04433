package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Command-line front end for the husky file transfer
 *		tool.
 *
 *		One binary, two roles: run it as "tx" on the sending
 *		machine and "rx" on the receiving one, pointed at the
 *		two ends of a serial line.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	husky "husky/src"
)

func main() {
	var configFileName = pflag.StringP("config-file", "c", "husky.yaml", "Defaults file name.")
	var debug = pflag.BoolP("debug", "d", false, "Log link-layer events: frames, rejections, retransmissions, timer expiries.")
	var chunkSize = pflag.IntP("chunk-size", "s", 0, "File bytes per data packet.  0 takes the configured or built-in default.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede received packets with a 'strftime' format time stamp.")
	var showStats = pflag.BoolP("stats", "S", false, "Report traffic statistics at disconnect.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - reliable file transfer over a raw serial line.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: husky [options] serial_port role baud_rate max_tries timeout filename\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "  serial_port   Device path, e.g. /dev/ttyS0\n")
		fmt.Fprintf(os.Stderr, "  role          \"tx\" to send the file, \"rx\" to receive it\n")
		fmt.Fprintf(os.Stderr, "  baud_rate     Line speed, e.g. 9600.  0 leaves the device alone\n")
		fmt.Fprintf(os.Stderr, "  max_tries     Consecutive timeouts before giving up\n")
		fmt.Fprintf(os.Stderr, "  timeout       Seconds to wait for any expected response\n")
		fmt.Fprintf(os.Stderr, "  filename      File to send (tx) or to create (rx)\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if pflag.NArg() != 6 {
		fmt.Fprintf(os.Stderr, "Expected 6 arguments, got %d.\n\n", pflag.NArg())
		pflag.Usage()
		os.Exit(1)
	}

	var device = pflag.Arg(0)
	var roleArg = pflag.Arg(1)
	var filename = pflag.Arg(5)

	var role husky.Role
	switch roleArg {
	case "tx":
		role = husky.Transmitter
	case "rx":
		role = husky.Receiver
	default:
		fmt.Fprintf(os.Stderr, "Role must be \"tx\" or \"rx\", not %q.\n", roleArg)
		os.Exit(1)
	}

	var baud = mustPositiveInt(pflag.Arg(2), "baud_rate", true)
	var maxTries = mustPositiveInt(pflag.Arg(3), "max_tries", false)
	var timeout = mustPositiveInt(pflag.Arg(4), "timeout", false)

	var defaults, defaultsErr = husky.LoadDefaults(*configFileName)
	if defaultsErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", defaultsErr)
		os.Exit(1)
	}

	husky.SetDebug(*debug || defaults.Debug)

	if *chunkSize == 0 {
		*chunkSize = defaults.ChunkSize
	}
	if *timestampFormat == "" {
		*timestampFormat = defaults.TimestampFormat
	}

	var cfg = husky.Config{
		Device:  device,
		Baud:    baud,
		Role:    role,
		Timeout: time.Duration(timeout) * time.Second,
		Retries: maxTries,
	}

	var session, err = husky.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not establish connection: %s\n", err)
		os.Exit(1)
	}

	if role == husky.Transmitter {
		err = husky.SendFile(session, filename, *chunkSize, *showStats || defaults.Stats)
	} else {
		err = husky.ReceiveFile(session, filename, *timestampFormat)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Transfer failed: %s\n", err)
		os.Exit(1)
	}
}

func mustPositiveInt(arg, name string, zeroOK bool) int {
	var n, err = strconv.Atoi(arg)
	if err != nil || n < 0 || (n == 0 && !zeroOK) {
		fmt.Fprintf(os.Stderr, "%s must be a positive integer, not %q.\n", name, arg)
		os.Exit(1)
	}
	return n
}

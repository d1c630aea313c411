package app

import (
	"fmt"
	"strconv"

	"slate/kernel"
	"slate/user"
)

// programs maps a program name to a factory for a fresh process entry.
// Entries keep their state in the closure and are resumed once per
// dispatch, so each call does a small unit of work and returns.
var programs = map[string]func() kernel.Entry{
	"idle":  func() kernel.Entry { return idleProgram },
	"hello": helloProgram,
	"clock": clockProgram,
	"echo":  echoProgram,
	"spin":  spinProgram,
}

func idleProgram(*kernel.Context) {}

// helloProgram greets once and exits.
func helloProgram() kernel.Entry {
	return func(ctx *kernel.Context) {
		user.Puts(ctx, fmt.Sprintf("hello from %s (pid %d) on %s\n", user.Name(ctx), user.PID(ctx), user.OSName(ctx)))
		user.Exit(ctx)
	}
}

// clockProgram prints the uptime and sleeps for a second.
func clockProgram() kernel.Entry {
	return func(ctx *kernel.Context) {
		user.Puts(ctx, "uptime "+strconv.Itoa(user.Time(ctx))+"s\n")
		user.Sleep(ctx, 1)
	}
}

// echoProgram collects typed input into lines and writes each completed
// line back prefixed with "> ".
func echoProgram() kernel.Entry {
	var line []byte
	var buf [32]byte
	return func(ctx *kernel.Context) {
		n := user.Read(ctx, kernel.ProcIOIn, buf[:])
		for _, c := range buf[:max(n, 0)] {
			switch c {
			case '\n':
				user.Puts(ctx, "> "+string(line)+"\n")
				line = line[:0]
			case '\b':
				if len(line) > 0 {
					line = line[:len(line)-1]
				}
			default:
				line = append(line, c)
			}
		}
	}
}

// spinProgram never blocks; it reports progress every 500 dispatches and
// is only ever descheduled by timeslice expiry.
func spinProgram() kernel.Entry {
	steps := 0
	return func(ctx *kernel.Context) {
		steps++
		if steps%500 == 0 {
			user.Puts(ctx, "spin "+strconv.Itoa(steps)+"\n")
		}
	}
}

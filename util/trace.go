package util

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Trace 记录一段操作的耗时，用法：defer util.Trace("process photo")()
func Trace(msg string) func() {
	start := time.Now()
	log.Debug().Str("trace", msg).Msg("start")
	return func() {
		log.Debug().Str("trace", msg).Dur("elapsed", time.Since(start)).Msg("done")
	}
}

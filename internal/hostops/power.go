package hostops

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Power schedules host power transitions through the platform shutdown
// utility. The run hook exists so tests never touch the real host.
type Power struct {
	run func(name string, args ...string) error
}

func NewPower() *Power {
	return &Power{
		run: func(name string, args ...string) error {
			out, err := exec.Command(name, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("hostops: %s: %w (%s)", name, err, out)
			}
			return nil
		},
	}
}

// ScheduleShutdown powers the host off after the delay, leaving the
// operator a window to cancel.
func (p *Power) ScheduleShutdown(delay time.Duration) error {
	log.Warn().Dur("delay", delay).Msg("shutdown scheduled")
	return p.schedule(false, delay)
}

// ScheduleReboot restarts the host after the delay.
func (p *Power) ScheduleReboot(delay time.Duration) error {
	log.Warn().Dur("delay", delay).Msg("reboot scheduled")
	return p.schedule(true, delay)
}

// Cancel aborts a pending shutdown or reboot.
func (p *Power) Cancel() error {
	if runtime.GOOS == "windows" {
		return p.run("shutdown", "/a")
	}
	return p.run("shutdown", "-c")
}

func (p *Power) schedule(reboot bool, delay time.Duration) error {
	if runtime.GOOS == "windows" {
		mode := "/s"
		if reboot {
			mode = "/r"
		}
		return p.run("shutdown", mode, "/t", strconv.Itoa(int(delay.Seconds())))
	}
	mode := "-h"
	if reboot {
		mode = "-r"
	}
	// The unix shutdown utility counts minutes; round the delay up so
	// the cancel window never shrinks below what was promised.
	minutes := int((delay + time.Minute - 1) / time.Minute)
	return p.run("shutdown", mode, "+"+strconv.Itoa(minutes))
}
